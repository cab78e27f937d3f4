// Package userdir resolves chat identities to user records and manages the
// at-most-one reciprocal pairing between two users.
package userdir

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cupidbot/internal/model"
	"cupidbot/internal/store"
)

var ErrNotFound = store.ErrNotFound

type Reason string

const (
	ReasonUnregistered    Reason = "unregistered"
	ReasonAlreadyPaired   Reason = "already_paired"
	ReasonNotPaired       Reason = "not_paired"
	ReasonPartnerNotFound Reason = "partner_not_found"
	ReasonPartnerPaired   Reason = "partner_paired"
	ReasonSelfPair        Reason = "self_pair"
)

type Result struct {
	OK      bool
	Reason  Reason
	Message string
	User    *model.User
}

func failure(reason Reason, message string) Result {
	return Result{Reason: reason, Message: message}
}

type Store interface {
	UpsertUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByChatID(ctx context.Context, chatID int64) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	SetPartners(ctx context.Context, aID, bID string) error
	ClearPartners(ctx context.Context, aID, bID string) error
}

type Directory struct {
	store Store
	log   zerolog.Logger
}

func New(st Store, log zerolog.Logger) *Directory {
	return &Directory{
		store: st,
		log:   log.With().Str("component", "userdir").Logger(),
	}
}

// Register creates the user for this chat identity, or refreshes the name
// fields if the identity is already known. Pairing is untouched either way.
func (d *Directory) Register(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.User, error) {
	u := &model.User{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Username:  strings.TrimPrefix(username, "@"),
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := d.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	d.log.Info().Int64("chat_id", chatID).Str("user_id", u.ID).Msg("user registered")
	return u, nil
}

// Lookup resolves a chat identity to the internal user record.
func (d *Directory) Lookup(ctx context.Context, chatID int64) (*model.User, error) {
	return d.store.UserByChatID(ctx, chatID)
}

func (d *Directory) IsPaired(ctx context.Context, chatID int64) (bool, error) {
	u, err := d.store.UserByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.PartnerID != nil, nil
}

// PairedUser returns the partner record, or ErrNotFound when the user is
// unknown or unpaired.
func (d *Directory) PairedUser(ctx context.Context, chatID int64) (*model.User, error) {
	u, err := d.store.UserByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.PartnerID == nil {
		return nil, ErrNotFound
	}
	return d.store.UserByID(ctx, *u.PartnerID)
}

// Pair links the acting user with the user behind partnerUsername. Both
// sides must be registered and unpaired, and self-pairing is refused.
func (d *Directory) Pair(ctx context.Context, chatID int64, partnerUsername string) (Result, error) {
	actor, err := d.store.UserByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonUnregistered, "You are not registered yet"), nil
	}
	if err != nil {
		return Result{}, err
	}

	if actor.PartnerID != nil {
		msg := "You are already paired"
		if partner, perr := d.store.UserByID(ctx, *actor.PartnerID); perr == nil {
			msg = "You are already paired with " + partner.DisplayName()
		}
		return failure(ReasonAlreadyPaired, msg), nil
	}

	partnerUsername = strings.TrimPrefix(partnerUsername, "@")
	partner, err := d.store.UserByUsername(ctx, partnerUsername)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonPartnerNotFound, "@"+partnerUsername+" is not registered yet"), nil
	}
	if err != nil {
		return Result{}, err
	}

	if partner.ID == actor.ID {
		return failure(ReasonSelfPair, "You cannot pair with yourself"), nil
	}
	if partner.PartnerID != nil {
		return failure(ReasonPartnerPaired, "@"+partnerUsername+" is already paired with someone else"), nil
	}

	if err := d.store.SetPartners(ctx, actor.ID, partner.ID); err != nil {
		return Result{}, err
	}

	d.log.Info().
		Str("user_id", actor.ID).
		Str("partner_id", partner.ID).
		Msg("users paired")
	return Result{OK: true, Message: "Paired with " + partner.DisplayName(), User: partner}, nil
}

// Unpair dissolves the pairing from both sides. Appointments created while
// paired keep their shared-with snapshot.
func (d *Directory) Unpair(ctx context.Context, chatID int64) (Result, error) {
	actor, err := d.store.UserByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(ReasonUnregistered, "You are not registered yet"), nil
	}
	if err != nil {
		return Result{}, err
	}
	if actor.PartnerID == nil {
		return failure(ReasonNotPaired, "You are not paired"), nil
	}

	if err := d.store.ClearPartners(ctx, actor.ID, *actor.PartnerID); err != nil {
		return Result{}, err
	}

	d.log.Info().
		Str("user_id", actor.ID).
		Str("partner_id", *actor.PartnerID).
		Msg("users unpaired")
	return Result{OK: true, Message: "Pairing removed"}, nil
}
