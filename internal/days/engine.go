// Package days implements the day ordering engine: days nested inside a tour,
// each with a logical day number that is dense (1..n) within its tour and
// independent of the immutable calendar date.
package days

import (
	"context"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/ordering"
	"github.com/starford/tourdesk/internal/store"
)

// Engine manages tour days. Every mutation runs in one store transaction.
type Engine struct {
	store store.Store
}

// NewEngine creates a new day engine.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// ListByTour returns the tour's days ordered by logical day number.
func (e *Engine) ListByTour(ctx context.Context, tourID string) ([]models.Day, error) {
	return e.store.ListDays(ctx, tourID)
}

// Get returns one day.
func (e *Engine) Get(ctx context.Context, dayID string) (*models.Day, error) {
	return e.store.GetDay(ctx, dayID)
}

// Create appends a new day to the end of its tour.
func (e *Engine) Create(ctx context.Context, draft models.DayDraft) (*models.Day, error) {
	if err := draft.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	var created *models.Day
	err := e.store.InTx(ctx, func(r store.Repo) error {
		if err := r.LockTour(ctx, draft.TourID); err != nil {
			return err
		}
		last, err := r.MaxDayNumber(ctx, draft.TourID)
		if err != nil {
			return err
		}
		d := &models.Day{
			TourID:           draft.TourID,
			CalendarDate:     draft.CalendarDate,
			LogicalDayNumber: last + 1,
			Title:            draft.Title,
			Description:      draft.Description,
			Schedule:         draft.Schedule,
			Notes:            draft.Notes,
			TastesIDs:        draft.TastesIDs,
			RoutesIDs:        draft.RoutesIDs,
			HotelID:          draft.HotelID,
			TicketIDs:        draft.TicketIDs,
		}
		if err := r.InsertDay(ctx, d); err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update writes the allow-listed fields present in patch.
func (e *Engine) Update(ctx context.Context, dayID string, patch models.DayPatch) (*models.Day, error) {
	if !patch.IsEmpty() {
		if err := e.store.UpdateDay(ctx, dayID, patch); err != nil {
			return nil, err
		}
	}
	return e.store.GetDay(ctx, dayID)
}

// Delete removes the day with its items and closes the gap in the tour's numbering.
func (e *Engine) Delete(ctx context.Context, dayID string) error {
	return e.store.InTx(ctx, func(r store.Repo) error {
		d, err := r.GetDay(ctx, dayID)
		if err != nil {
			return err
		}
		if err := r.LockTour(ctx, d.TourID); err != nil {
			return err
		}
		// Re-read under the tour lock for a stable number.
		if d, err = r.GetDay(ctx, dayID); err != nil {
			return err
		}
		if err := r.DeleteDay(ctx, d.ID); err != nil {
			return err
		}
		return r.ShiftDayNumbers(ctx, d.TourID, d.LogicalDayNumber+1, -1)
	})
}

// Reorder applies a full permutation of the tour's day numbers. Every day of
// the tour must appear exactly once with numbers 1..n.
func (e *Engine) Reorder(ctx context.Context, tourID string, assignments []models.DayAssignment) ([]models.Day, error) {
	if len(assignments) == 0 {
		return nil, apperr.Invalid("assignments", "must not be empty")
	}
	var out []models.Day
	err := e.store.InTx(ctx, func(r store.Repo) error {
		if err := r.LockTour(ctx, tourID); err != nil {
			return err
		}
		current, err := r.ListDays(ctx, tourID)
		if err != nil {
			return err
		}
		pairs := make([]ordering.Assignment, len(assignments))
		for i, a := range assignments {
			pairs[i] = ordering.Assignment{ID: a.DayID, Key: a.NewLogicalDayNumber}
		}
		if err := ordering.Validate("dayId", "newLogicalDayNumber", "tour "+tourID, dayIDs(current), pairs, models.FirstDayNumber); err != nil {
			return err
		}
		if err := r.SetDayNumbers(ctx, toDayAssignments(ordering.Changed(pairs, numbers(current)))); err != nil {
			return err
		}
		out, err = r.ListDays(ctx, tourID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Swap exchanges the logical day numbers of two days of the same tour and
// returns the tour's days.
func (e *Engine) Swap(ctx context.Context, dayIDA, dayIDB string) ([]models.Day, error) {
	var out []models.Day
	err := e.store.InTx(ctx, func(r store.Repo) error {
		a, err := r.GetDay(ctx, dayIDA)
		if err != nil {
			return err
		}
		b, err := r.GetDay(ctx, dayIDB)
		if err != nil {
			return err
		}
		if a.TourID != b.TourID {
			return apperr.Invalid("dayId", "%q and %q belong to different tours", a.ID, b.ID)
		}
		if err := r.LockTour(ctx, a.TourID); err != nil {
			return err
		}
		if a.ID != b.ID {
			if a, err = r.GetDay(ctx, dayIDA); err != nil {
				return err
			}
			if b, err = r.GetDay(ctx, dayIDB); err != nil {
				return err
			}
			if err := r.SetDayNumbers(ctx, []models.DayAssignment{
				{DayID: a.ID, NewLogicalDayNumber: b.LogicalDayNumber},
				{DayID: b.ID, NewLogicalDayNumber: a.LogicalDayNumber},
			}); err != nil {
				return err
			}
		}
		out, err = r.ListDays(ctx, a.TourID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssignLinks replaces each provided link set of the day.
func (e *Engine) AssignLinks(ctx context.Context, dayID string, links models.DayLinks) (*models.Day, error) {
	if links.IsEmpty() {
		return nil, apperr.Invalid("links", "at least one of tastesIds, routesIds, hotelId, ticketIds is required")
	}
	if err := e.store.SetDayLinks(ctx, dayID, links); err != nil {
		return nil, err
	}
	return e.store.GetDay(ctx, dayID)
}

// WithLinkedItems resolves the day's tastes, routes, hotel and tickets.
// Unset or dangling links resolve to empty lists or nil.
func (e *Engine) WithLinkedItems(ctx context.Context, dayID string) (*models.DayWithLinks, error) {
	d, err := e.store.GetDay(ctx, dayID)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, e.store, *d)
}

// Resolve enriches d with its linked records using res.
func Resolve(ctx context.Context, res store.Resolver, d models.Day) (*models.DayWithLinks, error) {
	out := &models.DayWithLinks{Day: d}
	var err error
	if out.LinkedTastes, err = res.LinkedByIDs(ctx, models.KindTaste, d.TastesIDs); err != nil {
		return nil, err
	}
	if out.LinkedRoutes, err = res.LinkedByIDs(ctx, models.KindRoute, d.RoutesIDs); err != nil {
		return nil, err
	}
	if out.LinkedHotel, err = res.LinkedByID(ctx, models.KindStay, d.HotelID); err != nil {
		return nil, err
	}
	if out.LinkedTickets, err = res.LinkedByIDs(ctx, models.KindTicket, d.TicketIDs); err != nil {
		return nil, err
	}
	return out, nil
}

// Compact renumbers the tour's days 1..n keeping their current order.
func (e *Engine) Compact(ctx context.Context, tourID string) ([]models.Day, error) {
	var out []models.Day
	err := e.store.InTx(ctx, func(r store.Repo) error {
		if err := r.LockTour(ctx, tourID); err != nil {
			return err
		}
		current, err := r.ListDays(ctx, tourID)
		if err != nil {
			return err
		}
		dense := ordering.Dense(dayIDs(current), models.FirstDayNumber)
		if err := r.SetDayNumbers(ctx, toDayAssignments(ordering.Changed(dense, numbers(current)))); err != nil {
			return err
		}
		out, err = r.ListDays(ctx, tourID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dayIDs(days []models.Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.ID
	}
	return out
}

func numbers(days []models.Day) map[string]int {
	out := make(map[string]int, len(days))
	for _, d := range days {
		out[d.ID] = d.LogicalDayNumber
	}
	return out
}

func toDayAssignments(pairs []ordering.Assignment) []models.DayAssignment {
	out := make([]models.DayAssignment, len(pairs))
	for i, p := range pairs {
		out[i] = models.DayAssignment{DayID: p.ID, NewLogicalDayNumber: p.Key}
	}
	return out
}
