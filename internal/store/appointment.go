package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"cupidbot/internal/model"
)

const appointmentCols = `id, title, description, starts_at, location, created_by, shared_with, reminder_sent, created_at`

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO appointments (title, description, starts_at, location, created_by, shared_with)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id, created_at`,
		a.Title, a.Description, a.StartsAt, a.Location, a.CreatedBy, a.SharedWith,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *Store) AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Description, &a.StartsAt, &a.Location,
		&a.CreatedBy, &a.SharedWith, &a.ReminderSent, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListVisible returns appointments the user created or was shared into,
// optionally bounded to [from, to] inclusive. Ascending by start time,
// ties broken by insertion order.
func (s *Store) ListVisible(ctx context.Context, userID string, from, to *time.Time) ([]model.Appointment, error) {
	q := `SELECT ` + appointmentCols + `
	      FROM appointments
	      WHERE (created_by = $1 OR shared_with = $1)`
	args := []any{userID}

	if from != nil {
		args = append(args, *from)
		q += ` AND starts_at >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			q += ` AND starts_at <= $3`
		} else {
			q += ` AND starts_at <= $2`
		}
	}
	q += ` ORDER BY starts_at, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Description, &a.StartsAt, &a.Location,
			&a.CreatedBy, &a.SharedWith, &a.ReminderSent, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments
		 SET title = $1, description = $2, starts_at = $3, location = $4
		 WHERE id = $5`,
		a.Title, a.Description, a.StartsAt, a.Location, a.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAppointment hard-deletes the row and reports whether it existed.
func (s *Store) DeleteAppointment(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DueReminders returns appointments starting within the horizon whose
// reminder has not fired yet. The reminder collaborator owns the flag.
func (s *Store) DueReminders(ctx context.Context, horizon time.Duration) ([]model.Appointment, error) {
	now := time.Now()
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 WHERE reminder_sent = FALSE AND starts_at BETWEEN $1 AND $2
		 ORDER BY starts_at, id`,
		now, now.Add(horizon),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Description, &a.StartsAt, &a.Location,
			&a.CreatedBy, &a.SharedWith, &a.ReminderSent, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkReminderSent(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET reminder_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
