package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
)

const dayColumns = `id, tour_id, calendar_date, logical_day_number, title, description, schedule, notes,
	tastes_ids, routes_ids, hotel_id, ticket_ids, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(s rowScanner) (models.Day, error) {
	var d models.Day
	var tastes, routes, tickets string
	err := s.Scan(&d.ID, &d.TourID, &d.CalendarDate, &d.LogicalDayNumber, &d.Title, &d.Description,
		&d.Schedule, &d.Notes, &tastes, &routes, &d.HotelID, &tickets, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.TastesIDs = decodeIDs(tastes)
	d.RoutesIDs = decodeIDs(routes)
	d.TicketIDs = decodeIDs(tickets)
	return d, nil
}

func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func decodeIDs(raw string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(raw), &out)
	if out == nil {
		out = []string{}
	}
	return out
}

// ListDays returns the tour's days ordered by logical day number.
func (q *Queries) ListDays(ctx context.Context, tourID string) ([]models.Day, error) {
	rows, err := q.query(ctx, `SELECT `+dayColumns+` FROM tour_days
		WHERE tour_id = ?
		ORDER BY logical_day_number, calendar_date, id`, tourID)
	if err != nil {
		return nil, apperr.Store("list days", err)
	}
	defer rows.Close()

	out := []models.Day{}
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, apperr.Store("scan day", err)
		}
		out = append(out, d)
	}
	return out, apperr.Store("list days", rows.Err())
}

// GetDay returns the day with id.
func (q *Queries) GetDay(ctx context.Context, id string) (*models.Day, error) {
	return q.getDay(ctx, id, "")
}

// LockDay returns the day with id and locks its row on Postgres.
func (q *Queries) LockDay(ctx context.Context, id string) (*models.Day, error) {
	return q.getDay(ctx, id, q.dialect.forUpdate())
}

func (q *Queries) getDay(ctx context.Context, id, suffix string) (*models.Day, error) {
	d, err := scanDay(q.queryRow(ctx, `SELECT `+dayColumns+` FROM tour_days WHERE id = ?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("day", id)
	}
	if err != nil {
		return nil, apperr.Store("get day", err)
	}
	return &d, nil
}

// MaxDayNumber returns the highest logical day number in the tour, or 0.
func (q *Queries) MaxDayNumber(ctx context.Context, tourID string) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COALESCE(MAX(logical_day_number), 0) FROM tour_days WHERE tour_id = ?`, tourID).Scan(&n)
	if err != nil {
		return 0, apperr.Store("max day number", err)
	}
	return n, nil
}

// InsertDay persists d, assigning id and timestamps when unset.
func (q *Queries) InsertDay(ctx context.Context, d *models.Day) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.TastesIDs == nil {
		d.TastesIDs = []string{}
	}
	if d.RoutesIDs == nil {
		d.RoutesIDs = []string{}
	}
	if d.TicketIDs == nil {
		d.TicketIDs = []string{}
	}
	_, err := q.exec(ctx, `INSERT INTO tour_days (`+dayColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TourID, d.CalendarDate, d.LogicalDayNumber, d.Title, d.Description, d.Schedule, d.Notes,
		encodeIDs(d.TastesIDs), encodeIDs(d.RoutesIDs), d.HotelID, encodeIDs(d.TicketIDs), d.CreatedAt, d.UpdatedAt)
	return apperr.Store("insert day", err)
}

// setList accumulates SET clauses for partial updates.
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setList) empty() bool { return len(s.cols) == 0 }

// update runs UPDATE table SET ... WHERE id = ? and reports a missing row.
func (q *Queries) update(ctx context.Context, op, table, entity, id string, s *setList) error {
	s.add("updated_at", time.Now().UTC())
	res, err := q.exec(ctx, `UPDATE `+table+` SET `+strings.Join(s.cols, ", ")+` WHERE id = ?`, append(s.args, id)...)
	if err != nil {
		return apperr.Store(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store(op, err)
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

// UpdateDay writes the non-nil fields of p.
func (q *Queries) UpdateDay(ctx context.Context, id string, p models.DayPatch) error {
	var s setList
	if p.Title != nil {
		s.add("title", *p.Title)
	}
	if p.Description != nil {
		s.add("description", *p.Description)
	}
	if p.Schedule != nil {
		s.add("schedule", *p.Schedule)
	}
	if p.Notes != nil {
		s.add("notes", *p.Notes)
	}
	if s.empty() {
		return nil
	}
	return q.update(ctx, "update day", "tour_days", "day", id, &s)
}

// SetDayLinks replaces each provided link set of the day.
func (q *Queries) SetDayLinks(ctx context.Context, id string, l models.DayLinks) error {
	var s setList
	if l.TastesIDs != nil {
		s.add("tastes_ids", encodeIDs(*l.TastesIDs))
	}
	if l.RoutesIDs != nil {
		s.add("routes_ids", encodeIDs(*l.RoutesIDs))
	}
	if l.HotelID != nil {
		s.add("hotel_id", *l.HotelID)
	}
	if l.TicketIDs != nil {
		s.add("ticket_ids", encodeIDs(*l.TicketIDs))
	}
	if s.empty() {
		return nil
	}
	return q.update(ctx, "set day links", "tour_days", "day", id, &s)
}

// SetDayNumbers writes every assignment. Callers run it inside a transaction.
func (q *Queries) SetDayNumbers(ctx context.Context, assignments []models.DayAssignment) error {
	now := time.Now().UTC()
	for _, a := range assignments {
		if _, err := q.exec(ctx, `UPDATE tour_days SET logical_day_number = ?, updated_at = ? WHERE id = ?`,
			a.NewLogicalDayNumber, now, a.DayID); err != nil {
			return apperr.Store("set day number", err)
		}
	}
	return nil
}

// ShiftDayNumbers adds delta to every day number >= from in the tour.
func (q *Queries) ShiftDayNumbers(ctx context.Context, tourID string, from, delta int) error {
	_, err := q.exec(ctx, `UPDATE tour_days
		SET logical_day_number = logical_day_number + ?, updated_at = ?
		WHERE tour_id = ? AND logical_day_number >= ?`, delta, time.Now().UTC(), tourID, from)
	return apperr.Store("shift day numbers", err)
}

// DeleteDay removes the day and its items.
func (q *Queries) DeleteDay(ctx context.Context, id string) error {
	if _, err := q.exec(ctx, `DELETE FROM day_items WHERE day_id = ?`, id); err != nil {
		return apperr.Store("delete day items", err)
	}
	res, err := q.exec(ctx, `DELETE FROM tour_days WHERE id = ?`, id)
	if err != nil {
		return apperr.Store("delete day", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("day", id)
	}
	return nil
}
