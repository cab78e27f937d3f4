// Package appointment validates, persists and answers queries about the
// shared appointments of a paired couple. It is the authorization boundary:
// everything above it is rendering, everything below it is storage.
package appointment

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"cupidbot/internal/extract"
	"cupidbot/internal/model"
	"cupidbot/internal/store"
)

// ErrNotFound is returned on read paths both when the record is missing
// and when the actor may not see it. The two cases are deliberately
// indistinguishable to the caller.
var ErrNotFound = store.ErrNotFound

// Store is the slice of the persistence layer the manager needs.
type Store interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error)
	ListVisible(ctx context.Context, userID string, from, to *time.Time) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id int64) (bool, error)
}

// Extractor produces structured appointment fields from free text.
// Any returned error means "nothing usable was extracted".
type Extractor interface {
	ExtractAppointment(ctx context.Context, text string, ref time.Time) (*extract.Details, error)
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxLocationLen    = 200
)

type Config struct {
	// PastTolerance is the grace period within which "now-ish" start
	// times are still accepted.
	PastTolerance time.Duration
	// ConflictWindow is the default ± range for conflict detection.
	ConflictWindow time.Duration
	// Location resolves calendar-day boundaries for ListForDate.
	Location *time.Location
}

func (c *Config) fill() {
	if c.PastTolerance <= 0 {
		c.PastTolerance = 5 * time.Minute
	}
	if c.ConflictWindow <= 0 {
		c.ConflictWindow = 30 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
}

type Manager struct {
	store     Store
	extractor Extractor
	cfg       Config
	log       zerolog.Logger
}

func NewManager(st Store, ex Extractor, cfg Config, log zerolog.Logger) *Manager {
	cfg.fill()
	return &Manager{
		store:     st,
		extractor: ex,
		cfg:       cfg,
		log:       log.With().Str("component", "appointment").Logger(),
	}
}

// CreateFromText creates an appointment from a free-form chat message.
// Relative dates in the text are resolved against ref. Extraction problems
// of any kind come back as a failure Result, never as an error.
func (m *Manager) CreateFromText(ctx context.Context, actingUserID, text string, ref time.Time) (Result, error) {
	// user existence is the cheap check; don't spend an API call on ghosts
	user, err := m.store.UserByID(ctx, actingUserID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonUnknownUser, "You are not registered yet"), nil
	}
	if err != nil {
		return Result{}, err
	}

	if m.extractor == nil {
		return failure(ReasonExtraction, "Free-text understanding is not configured"), nil
	}

	details, err := m.extractor.ExtractAppointment(ctx, text, ref)
	if err != nil {
		msg := "Could not understand the appointment details"
		var xerr *extract.Error
		if errors.As(err, &xerr) {
			msg = "Could not understand the appointment details: " + xerr.Reason
		} else {
			m.log.Warn().Err(err).Str("user_id", user.ID).Msg("extraction call failed")
		}
		return failure(ReasonExtraction, msg), nil
	}

	title := strings.TrimSpace(details.Title)
	if title == "" {
		return failure(ReasonExtraction, "Could not understand the appointment details: no title identified"), nil
	}
	if r := validateText(title, details.Description, details.Location); r != nil {
		return *r, nil
	}
	if !details.StartsAt.After(ref.Add(-m.cfg.PastTolerance)) {
		return failure(ReasonPastDate, "The date must be in the future"), nil
	}

	return m.persist(ctx, user, title, details.Description, details.StartsAt, details.Location)
}

// Create creates an appointment from already-structured input. Validation
// runs in fixed priority order: user, then title, then date.
func (m *Manager) Create(ctx context.Context, actingUserID, title string, startsAt time.Time, description, location string) (Result, error) {
	user, err := m.store.UserByID(ctx, actingUserID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonUnknownUser, "You are not registered yet"), nil
	}
	if err != nil {
		return Result{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return failure(ReasonEmptyTitle, "The title must not be empty"), nil
	}
	if r := validateText(title, description, location); r != nil {
		return *r, nil
	}
	if !startsAt.After(time.Now().Add(-m.cfg.PastTolerance)) {
		return failure(ReasonPastDate, "The date must be in the future"), nil
	}

	return m.persist(ctx, user, title, description, startsAt, location)
}

func (m *Manager) persist(ctx context.Context, user *model.User, title, description string, startsAt time.Time, location string) (Result, error) {
	a := &model.Appointment{
		Title:       title,
		Description: description,
		StartsAt:    startsAt,
		Location:    location,
		CreatedBy:   user.ID,
		SharedWith:  user.PartnerID, // snapshot; later pairing changes don't touch it
	}
	if err := m.store.CreateAppointment(ctx, a); err != nil {
		return Result{}, err
	}

	m.log.Info().
		Int64("appointment_id", a.ID).
		Str("user_id", user.ID).
		Time("starts_at", a.StartsAt).
		Msg("appointment created")
	return created(a, "Appointment created"), nil
}

// Get returns the appointment only if the actor may see it; a record that
// exists but belongs to someone else reads as not found.
func (m *Manager) Get(ctx context.Context, id int64, actingUserID string) (*model.Appointment, error) {
	a, err := m.store.AppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.VisibleTo(actingUserID) {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns appointments visible to the actor, optionally bounded to
// [from, to] inclusive, ascending by start time. No matches is an empty
// slice, not an error.
func (m *Manager) List(ctx context.Context, actingUserID string, from, to *time.Time) ([]model.Appointment, error) {
	return m.store.ListVisible(ctx, actingUserID, from, to)
}

// ListForDate returns the actor's appointments on the calendar day of day,
// resolved in the manager's configured location.
func (m *Manager) ListForDate(ctx context.Context, actingUserID string, day time.Time) ([]model.Appointment, error) {
	day = day.In(m.cfg.Location)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, m.cfg.Location)
	to := from.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return m.store.ListVisible(ctx, actingUserID, &from, &to)
}

// Update describes a partial appointment update; nil fields stay as they are.
type Update struct {
	Title       *string
	Description *string
	StartsAt    *time.Time
	Location    *string
}

func (u Update) empty() bool {
	return u.Title == nil && u.Description == nil && u.StartsAt == nil && u.Location == nil
}

// ApplyUpdate re-validates the changed fields and persists them. Unlike the
// read path, an existing record the actor may not touch is reported as a
// permission failure, since the caller already proved they know the id.
func (m *Manager) ApplyUpdate(ctx context.Context, id int64, actingUserID string, upd Update) (Result, error) {
	a, err := m.store.AppointmentByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonNotFound, "Appointment not found"), nil
	}
	if err != nil {
		return Result{}, err
	}
	if !a.VisibleTo(actingUserID) {
		return failure(ReasonPermissionDenied, "You do not have permission to change this appointment"), nil
	}
	if upd.empty() {
		return failure(ReasonNoFields, "Nothing to update"), nil
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return failure(ReasonEmptyTitle, "The title must not be empty"), nil
		}
		a.Title = title
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Location != nil {
		a.Location = *upd.Location
	}
	if r := validateText(a.Title, a.Description, a.Location); r != nil {
		return *r, nil
	}
	if upd.StartsAt != nil {
		if !upd.StartsAt.After(time.Now().Add(-m.cfg.PastTolerance)) {
			return failure(ReasonPastDate, "The date must be in the future"), nil
		}
		a.StartsAt = *upd.StartsAt
	}

	if err := m.store.UpdateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// deleted between read and write
			return failure(ReasonNotFound, "Appointment not found"), nil
		}
		return Result{}, err
	}

	m.log.Info().
		Int64("appointment_id", a.ID).
		Str("user_id", actingUserID).
		Msg("appointment updated")
	return Result{OK: true, Message: "Appointment updated", Appointment: a}, nil
}

// Delete removes the appointment once the actor is authorized. Deleting an
// id that no longer exists reads exactly like one that never did.
func (m *Manager) Delete(ctx context.Context, id int64, actingUserID string) (Result, error) {
	a, err := m.store.AppointmentByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonNotFound, "Appointment not found"), nil
	}
	if err != nil {
		return Result{}, err
	}
	if !a.VisibleTo(actingUserID) {
		return failure(ReasonPermissionDenied, "You do not have permission to delete this appointment"), nil
	}

	deleted, err := m.store.DeleteAppointment(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !deleted {
		return failure(ReasonNotFound, "Appointment not found"), nil
	}

	m.log.Info().
		Int64("appointment_id", id).
		Str("user_id", actingUserID).
		Msg("appointment deleted")
	return Result{OK: true, Message: "Appointment deleted"}, nil
}

// FindConflicts returns appointments visible to the actor that start within
// ±window of at. Advisory only: creation flows warn about conflicts but
// never refuse because of them. window <= 0 uses the configured default.
func (m *Manager) FindConflicts(ctx context.Context, actingUserID string, at time.Time, window time.Duration) ([]model.Appointment, error) {
	if window <= 0 {
		window = m.cfg.ConflictWindow
	}
	from := at.Add(-window)
	to := at.Add(window)
	return m.store.ListVisible(ctx, actingUserID, &from, &to)
}

func validateText(title, description, location string) *Result {
	if utf8.RuneCountInString(title) > maxTitleLen {
		r := failure(ReasonTitleTooLong, "The title is too long")
		return &r
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen ||
		utf8.RuneCountInString(location) > maxLocationLen {
		r := failure(ReasonTextTooLong, "The description or location is too long")
		return &r
	}
	return nil
}
