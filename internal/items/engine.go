// Package items implements the item ordering engine: items nested inside a day,
// each with a position that is dense (0..n-1) within its day.
package items

import (
	"context"
	"errors"
	"sort"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/ordering"
	"github.com/starford/tourdesk/internal/store"
)

var errItemMoving = errors.New("item keeps changing day while being locked")

// Engine manages day items. Every mutation runs in one store transaction.
type Engine struct {
	store store.Store
}

// NewEngine creates a new item engine.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// ListByDay returns the day's items ordered by position.
func (e *Engine) ListByDay(ctx context.Context, dayID string) ([]models.Item, error) {
	return e.store.ListItemsByDay(ctx, dayID)
}

// ListByTour returns every item of the tour grouped by day id.
func (e *Engine) ListByTour(ctx context.Context, tourID string) (map[string][]models.Item, error) {
	all, err := e.store.ListItemsByTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]models.Item)
	for _, it := range all {
		out[it.DayID] = append(out[it.DayID], it)
	}
	return out, nil
}

// Get returns one item.
func (e *Engine) Get(ctx context.Context, itemID string) (*models.Item, error) {
	return e.store.GetItem(ctx, itemID)
}

// Create appends a new item to the end of its day.
func (e *Engine) Create(ctx context.Context, draft models.ItemDraft) (*models.Item, error) {
	if err := draft.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	var created *models.Item
	err := e.store.InTx(ctx, func(r store.Repo) error {
		var err error
		created, err = appendItem(ctx, r, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func appendItem(ctx context.Context, r store.Repo, draft models.ItemDraft) (*models.Item, error) {
	day, err := r.LockDay(ctx, draft.DayID)
	if err != nil {
		return nil, err
	}
	if day.TourID != draft.TourID {
		return nil, apperr.Invalid("tourId", "day %q belongs to tour %q, not %q", day.ID, day.TourID, draft.TourID)
	}
	last, err := r.MaxPosition(ctx, day.ID)
	if err != nil {
		return nil, err
	}
	it := &models.Item{
		DayID:       day.ID,
		TourID:      day.TourID,
		ItemType:    draft.ItemType,
		Position:    last + 1,
		Title:       draft.Title,
		Description: draft.Description,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Location:    draft.Location,
		Notes:       draft.Notes,
		Color:       draft.Color,
		TastesID:    draft.TastesID,
		RoutesID:    draft.RoutesID,
		StayID:      draft.StayID,
	}
	if it.Color == "" {
		it.Color = it.ItemType.DefaultColor()
	}
	if err := r.InsertItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Update writes the allow-listed fields present in patch.
func (e *Engine) Update(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	if err := patch.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if !patch.IsEmpty() {
		if err := e.store.UpdateItem(ctx, itemID, patch); err != nil {
			return nil, err
		}
	}
	return e.store.GetItem(ctx, itemID)
}

// Delete removes the item and closes the gap it leaves in its day.
func (e *Engine) Delete(ctx context.Context, itemID string) error {
	return e.store.InTx(ctx, func(r store.Repo) error {
		it, err := lockItem(ctx, r, itemID)
		if err != nil {
			return err
		}
		if err := r.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
		return r.ShiftPositions(ctx, it.DayID, it.Position+1, -1)
	})
}

// ReorderWithinDay applies a full permutation of the day's positions. The
// assignments must cover every item of the day exactly once with positions 0..n-1.
func (e *Engine) ReorderWithinDay(ctx context.Context, dayID string, assignments []models.ItemAssignment) ([]models.Item, error) {
	if len(assignments) == 0 {
		return nil, apperr.Invalid("assignments", "must not be empty")
	}
	var out []models.Item
	err := e.store.InTx(ctx, func(r store.Repo) error {
		if _, err := r.LockDay(ctx, dayID); err != nil {
			return err
		}
		current, err := r.ListItemsByDay(ctx, dayID)
		if err != nil {
			return err
		}
		pairs := make([]ordering.Assignment, len(assignments))
		for i, a := range assignments {
			pairs[i] = ordering.Assignment{ID: a.ItemID, Key: a.NewPosition}
		}
		if err := ordering.Validate("itemId", "newPosition", "day "+dayID, itemIDs(current), pairs, models.FirstPosition); err != nil {
			return err
		}
		if err := r.SetItemPositions(ctx, toItemAssignments(ordering.Changed(pairs, positions(current)))); err != nil {
			return err
		}
		out, err = r.ListItemsByDay(ctx, dayID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveToDay moves an item to newDayID at newPosition, or to the end of that day
// when newPosition is nil. Items at or after the target index shift up by one
// and the source day's gap is closed. A move within the same day is a list move.
func (e *Engine) MoveToDay(ctx context.Context, itemID, newDayID string, newPosition *int) (*models.MoveResult, error) {
	if newPosition != nil && *newPosition < models.FirstPosition {
		return nil, apperr.Invalid("position", "must be >= %d", models.FirstPosition)
	}
	var res *models.MoveResult
	err := e.store.InTx(ctx, func(r store.Repo) error {
		it, err := r.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.DayID == newDayID {
			res, err = moveWithinDay(ctx, r, it, newPosition)
			return err
		}
		res, err = moveAcrossDays(ctx, r, it, newDayID, newPosition)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func moveWithinDay(ctx context.Context, r store.Repo, it *models.Item, newPosition *int) (*models.MoveResult, error) {
	if _, err := r.LockDay(ctx, it.DayID); err != nil {
		return nil, err
	}
	current, err := r.ListItemsByDay(ctx, it.DayID)
	if err != nil {
		return nil, err
	}
	to := models.FirstPosition
	if newPosition != nil {
		to = *newPosition
	}
	if to >= len(current) {
		return nil, apperr.Invalid("position", "%d is outside 0..%d", to, len(current)-1)
	}
	ids := itemIDs(current)
	from := indexOf(ids, it.ID)
	if from < 0 {
		return nil, apperr.NotFound("item", it.ID)
	}
	dense := ordering.Dense(ordering.Move(ids, from, to), models.FirstPosition)
	if err := r.SetItemPositions(ctx, toItemAssignments(ordering.Changed(dense, positions(current)))); err != nil {
		return nil, err
	}
	moved, err := r.GetItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	return &models.MoveResult{Item: moved, FromDayID: it.DayID, ToDayID: it.DayID}, nil
}

func moveAcrossDays(ctx context.Context, r store.Repo, it *models.Item, newDayID string, newPosition *int) (*models.MoveResult, error) {
	days, err := lockDays(ctx, r, it.DayID, newDayID)
	if err != nil {
		return nil, err
	}
	target := days[newDayID]

	// Re-read under the lock; the item may have moved since the first read.
	it, err = r.GetItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	from := it.DayID
	if from == newDayID {
		return moveWithinDay(ctx, r, it, newPosition)
	}

	last, err := r.MaxPosition(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	pos := last + 1
	if newPosition != nil {
		if *newPosition > last+1 {
			return nil, apperr.Invalid("position", "%d is outside 0..%d", *newPosition, last+1)
		}
		pos = *newPosition
		if err := r.ShiftPositions(ctx, target.ID, pos, 1); err != nil {
			return nil, err
		}
	}
	if err := r.RelocateItem(ctx, it.ID, target.ID, target.TourID, pos); err != nil {
		return nil, err
	}
	if err := r.ShiftPositions(ctx, from, it.Position+1, -1); err != nil {
		return nil, err
	}
	moved, err := r.GetItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	return &models.MoveResult{Item: moved, FromDayID: from, ToDayID: target.ID}, nil
}

// Duplicate copies an item's payload to the end of targetDayID.
func (e *Engine) Duplicate(ctx context.Context, itemID, targetDayID string) (*models.Item, error) {
	var dup *models.Item
	err := e.store.InTx(ctx, func(r store.Repo) error {
		src, err := r.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		target, err := r.GetDay(ctx, targetDayID)
		if err != nil {
			return err
		}
		draft := models.DraftFrom(*src, target.ID, target.TourID)
		if err := draft.Validate(); err != nil {
			return apperr.FromValidation(err)
		}
		dup, err = appendItem(ctx, r, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

// WithLinkedData resolves the item's taste, route and stay links. Dangling
// links resolve to nil.
func (e *Engine) WithLinkedData(ctx context.Context, itemID string) (*models.ItemWithLinks, error) {
	it, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, e.store, *it)
}

// Resolve enriches it with its linked records using res.
func Resolve(ctx context.Context, res store.Resolver, it models.Item) (*models.ItemWithLinks, error) {
	out := &models.ItemWithLinks{Item: it}
	var err error
	if out.Taste, err = res.LinkedByID(ctx, models.KindTaste, it.TastesID); err != nil {
		return nil, err
	}
	if out.Route, err = res.LinkedByID(ctx, models.KindRoute, it.RoutesID); err != nil {
		return nil, err
	}
	if out.Stay, err = res.LinkedByID(ctx, models.KindStay, it.StayID); err != nil {
		return nil, err
	}
	return out, nil
}

// Compact renumbers the day's items 0..n-1 keeping their current order. It
// repairs a day left with gaps or duplicates by an out-of-band writer.
func (e *Engine) Compact(ctx context.Context, dayID string) ([]models.Item, error) {
	var out []models.Item
	err := e.store.InTx(ctx, func(r store.Repo) error {
		if _, err := r.LockDay(ctx, dayID); err != nil {
			return err
		}
		current, err := r.ListItemsByDay(ctx, dayID)
		if err != nil {
			return err
		}
		dense := ordering.Dense(itemIDs(current), models.FirstPosition)
		if err := r.SetItemPositions(ctx, toItemAssignments(ordering.Changed(dense, positions(current)))); err != nil {
			return err
		}
		out, err = r.ListItemsByDay(ctx, dayID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockItem reads the item and locks its day, re-reading until the item is
// stable under the lock.
func lockItem(ctx context.Context, r store.Repo, itemID string) (*models.Item, error) {
	it, err := r.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for range 3 {
		if _, err := r.LockDay(ctx, it.DayID); err != nil {
			return nil, err
		}
		again, err := r.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if again.DayID == it.DayID {
			return again, nil
		}
		it = again
	}
	return nil, apperr.Store("lock item", errItemMoving)
}

// lockDays locks each day in id order so concurrent moves cannot deadlock.
func lockDays(ctx context.Context, r store.Repo, ids ...string) (map[string]*models.Day, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*models.Day, len(ids))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		d, err := r.LockDay(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = d
	}
	return out, nil
}

func itemIDs(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func positions(items []models.Item) map[string]int {
	out := make(map[string]int, len(items))
	for _, it := range items {
		out[it.ID] = it.Position
	}
	return out
}

func toItemAssignments(pairs []ordering.Assignment) []models.ItemAssignment {
	out := make([]models.ItemAssignment, len(pairs))
	for i, p := range pairs {
		out[i] = models.ItemAssignment{ItemID: p.ID, NewPosition: p.Key}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
