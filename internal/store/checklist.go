package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"cupidbot/internal/model"
)

const checklistCols = `id, title, description, created_by, shared_with, created_at`

func (s *Store) CreateChecklist(ctx context.Context, c *model.Checklist) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO checklists (title, description, created_by, shared_with)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		c.Title, c.Description, c.CreatedBy, c.SharedWith,
	).Scan(&c.ID, &c.CreatedAt)
}

func (s *Store) ChecklistByID(ctx context.Context, id int64) (*model.Checklist, error) {
	c := &model.Checklist{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+checklistCols+` FROM checklists WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.SharedWith, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListChecklists returns checklists visible to the user, newest first.
func (s *Store) ListChecklists(ctx context.Context, userID string) ([]model.Checklist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+checklistCols+`
		 FROM checklists
		 WHERE created_by = $1 OR shared_with = $1
		 ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Checklist
	for rows.Next() {
		var c model.Checklist
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.SharedWith, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteChecklist(ctx context.Context, id int64) (bool, error) {
	// items go with it via ON DELETE CASCADE
	tag, err := s.pool.Exec(ctx, `DELETE FROM checklists WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) AddChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO checklist_items (checklist_id, item_text)
		 VALUES ($1,$2)
		 RETURNING id, created_at`,
		item.ChecklistID, item.Text,
	).Scan(&item.ID, &item.CreatedAt)
}

func (s *Store) ChecklistItems(ctx context.Context, checklistID int64) ([]model.ChecklistItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, checklist_id, item_text, completed, completed_by, completed_at, created_at
		 FROM checklist_items
		 WHERE checklist_id = $1
		 ORDER BY created_at, id`, checklistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChecklistItem
	for rows.Next() {
		var it model.ChecklistItem
		if err := rows.Scan(&it.ID, &it.ChecklistID, &it.Text, &it.Completed,
			&it.CompletedBy, &it.CompletedAt, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ToggleChecklistItem flips the completion state of an item, recording who
// completed it and when. Returns the new state.
func (s *Store) ToggleChecklistItem(ctx context.Context, itemID int64, userID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var completed bool
	err = tx.QueryRow(ctx,
		`SELECT completed FROM checklist_items WHERE id = $1 FOR UPDATE`, itemID,
	).Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if completed {
		_, err = tx.Exec(ctx,
			`UPDATE checklist_items
			 SET completed = FALSE, completed_by = NULL, completed_at = NULL
			 WHERE id = $1`, itemID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE checklist_items
			 SET completed = TRUE, completed_by = $1, completed_at = $2
			 WHERE id = $3`, userID, time.Now(), itemID)
	}
	if err != nil {
		return false, err
	}
	return !completed, tx.Commit(ctx)
}
