package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
)

// InsertTour persists t, assigning an id and creation time when unset.
func (q *Queries) InsertTour(ctx context.Context, t *models.Tour) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx, `
		INSERT INTO tours (id, name, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.StartDate, t.EndDate, t.CreatedAt)
	return apperr.Store("insert tour", err)
}

// GetTour returns the tour with id.
func (q *Queries) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	var t models.Tour
	err := q.queryRow(ctx, `
		SELECT id, name, start_date, end_date, created_at FROM tours WHERE id = ?
	`, id).Scan(&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tour", id)
	}
	if err != nil {
		return nil, apperr.Store("get tour", err)
	}
	return &t, nil
}

// ListTours returns every tour, newest first.
func (q *Queries) ListTours(ctx context.Context) ([]models.Tour, error) {
	rows, err := q.query(ctx, `
		SELECT id, name, start_date, end_date, created_at FROM tours ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, apperr.Store("list tours", err)
	}
	defer rows.Close()

	out := []models.Tour{}
	for rows.Next() {
		var t models.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.CreatedAt); err != nil {
			return nil, apperr.Store("scan tour", err)
		}
		out = append(out, t)
	}
	return out, apperr.Store("list tours", rows.Err())
}

// LockTour checks that the tour exists and locks its row on Postgres.
func (q *Queries) LockTour(ctx context.Context, id string) error {
	var got string
	err := q.queryRow(ctx, `SELECT id FROM tours WHERE id = ?`+q.dialect.forUpdate(), id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("tour", id)
	}
	return apperr.Store("lock tour", err)
}
