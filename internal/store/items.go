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

const itemColumns = `id, day_id, tour_id, item_type, position, title, description, start_time, end_time,
	location, notes, color, tastes_id, routes_id, stay_id, created_at, updated_at`

func scanItem(s rowScanner) (models.Item, error) {
	var it models.Item
	err := s.Scan(&it.ID, &it.DayID, &it.TourID, &it.ItemType, &it.Position, &it.Title, &it.Description,
		&it.StartTime, &it.EndTime, &it.Location, &it.Notes, &it.Color, &it.TastesID, &it.RoutesID, &it.StayID,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (q *Queries) listItems(ctx context.Context, op, where string, arg any) ([]models.Item, error) {
	rows, err := q.query(ctx, `SELECT `+itemColumns+` FROM day_items WHERE `+where+`
		ORDER BY day_id, position, created_at, id`, arg)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	out := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Store("scan item", err)
		}
		out = append(out, it)
	}
	return out, apperr.Store(op, rows.Err())
}

// ListItemsByDay returns the day's items ordered by position.
func (q *Queries) ListItemsByDay(ctx context.Context, dayID string) ([]models.Item, error) {
	return q.listItems(ctx, "list items by day", "day_id = ?", dayID)
}

// ListItemsByTour returns every item of the tour ordered by day, then position.
func (q *Queries) ListItemsByTour(ctx context.Context, tourID string) ([]models.Item, error) {
	return q.listItems(ctx, "list items by tour", "tour_id = ?", tourID)
}

// GetItem returns the item with id.
func (q *Queries) GetItem(ctx context.Context, id string) (*models.Item, error) {
	it, err := scanItem(q.queryRow(ctx, `SELECT `+itemColumns+` FROM day_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("item", id)
	}
	if err != nil {
		return nil, apperr.Store("get item", err)
	}
	return &it, nil
}

// MaxPosition returns the highest position in the day, or -1 when it is empty.
func (q *Queries) MaxPosition(ctx context.Context, dayID string) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COALESCE(MAX(position), -1) FROM day_items WHERE day_id = ?`, dayID).Scan(&n)
	if err != nil {
		return 0, apperr.Store("max position", err)
	}
	return n, nil
}

// InsertItem persists it, assigning id and timestamps when unset.
func (q *Queries) InsertItem(ctx context.Context, it *models.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	_, err := q.exec(ctx, `INSERT INTO day_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.DayID, it.TourID, string(it.ItemType), it.Position, it.Title, it.Description, it.StartTime, it.EndTime,
		it.Location, it.Notes, it.Color, it.TastesID, it.RoutesID, it.StayID, it.CreatedAt, it.UpdatedAt)
	return apperr.Store("insert item", err)
}

// UpdateItem writes the non-nil fields of p.
func (q *Queries) UpdateItem(ctx context.Context, id string, p models.ItemPatch) error {
	var s setList
	if p.ItemType != nil {
		s.add("item_type", string(*p.ItemType))
	}
	for _, f := range []struct {
		col string
		v   *string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"start_time", p.StartTime},
		{"end_time", p.EndTime},
		{"location", p.Location},
		{"notes", p.Notes},
		{"color", p.Color},
		{"tastes_id", p.TastesID},
		{"routes_id", p.RoutesID},
		{"stay_id", p.StayID},
	} {
		if f.v != nil {
			s.add(f.col, *f.v)
		}
	}
	if s.empty() {
		return nil
	}
	return q.update(ctx, "update item", "day_items", "item", id, &s)
}

// SetItemPositions writes every assignment. Callers run it inside a transaction.
func (q *Queries) SetItemPositions(ctx context.Context, assignments []models.ItemAssignment) error {
	now := time.Now().UTC()
	for _, a := range assignments {
		if _, err := q.exec(ctx, `UPDATE day_items SET position = ?, updated_at = ? WHERE id = ?`,
			a.NewPosition, now, a.ItemID); err != nil {
			return apperr.Store("set item position", err)
		}
	}
	return nil
}

// ShiftPositions adds delta to every position >= from in the day.
func (q *Queries) ShiftPositions(ctx context.Context, dayID string, from, delta int) error {
	_, err := q.exec(ctx, `UPDATE day_items
		SET position = position + ?, updated_at = ?
		WHERE day_id = ? AND position >= ?`, delta, time.Now().UTC(), dayID, from)
	return apperr.Store("shift positions", err)
}

// RelocateItem rewrites the item's container and position.
func (q *Queries) RelocateItem(ctx context.Context, id, dayID, tourID string, position int) error {
	var s setList
	s.add("day_id", dayID)
	s.add("tour_id", tourID)
	s.add("position", position)
	return q.update(ctx, "relocate item", "day_items", "item", id, &s)
}

// DeleteItem removes the item.
func (q *Queries) DeleteItem(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM day_items WHERE id = ?`, id)
	if err != nil {
		return apperr.Store("delete item", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("item", id)
	}
	return nil
}
