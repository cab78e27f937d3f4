package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"cupidbot/internal/model"
)

const userCols = `id, chat_id, username, first_name, last_name, partner_id, created_at`

// UpsertUser inserts a user keyed by chat_id, or refreshes the name fields
// of the existing row. The stored id and pairing survive re-registration;
// u is updated in place with the persisted state.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO users (id, chat_id, username, first_name, last_name)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name
		 RETURNING `+userCols,
		u.ID, u.ChatID, u.Username, u.FirstName, u.LastName,
	).Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.PartnerID, &u.CreatedAt)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE chat_id = $1`, chatID))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (s *Store) scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.PartnerID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetPartners links two users to each other. Both updates run in one
// transaction so the relation stays symmetric.
func (s *Store) SetPartners(ctx context.Context, aID, bID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE users SET partner_id = $1 WHERE id = $2`, bID, aID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET partner_id = $1 WHERE id = $2`, aID, bID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ClearPartners removes the pairing from both sides.
func (s *Store) ClearPartners(ctx context.Context, aID, bID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE users SET partner_id = NULL WHERE id = $1`, aID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET partner_id = NULL WHERE id = $1`, bID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *Store) CountPairedUsers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE partner_id IS NOT NULL`).Scan(&n)
	return n, err
}
