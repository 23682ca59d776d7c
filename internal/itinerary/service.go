// Package itinerary is the facade controllers use: it fronts the day and item
// engines, assembles read-side views, applies per-operation deadlines and
// publishes change events.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/days"
	"github.com/starford/tourdesk/internal/items"
	"github.com/starford/tourdesk/internal/metrics"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/store"
)

// Notifier receives a change after every successful mutation.
type Notifier interface {
	PublishChange(models.Change)
}

type nopNotifier struct{}

func (nopNotifier) PublishChange(models.Change) {}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where change events are published.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithOpTimeout bounds every operation. Zero disables the deadline.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// Service is the itinerary assembly facade.
type Service struct {
	store    store.Store
	days     *days.Engine
	items    *items.Engine
	notifier Notifier
	timeout  time.Duration
}

// NewService creates the facade over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		days:     days.NewEngine(st),
		items:    items.NewEngine(st),
		notifier: nopNotifier{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// call runs fn under the operation deadline and records metrics for op.
func call[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperr.IsRetryable(err) &&
		!errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrNotFound) {
		err = &apperr.StoreError{Op: op, Err: fmt.Errorf("%w: %w", context.DeadlineExceeded, err), Retryable: true}
	}
	metrics.ObserveOp(op, start, err)
	return out, err
}

func (s *Service) emit(eventType, tourID, dayID, itemID string) {
	s.notifier.PublishChange(models.Change{Type: eventType, TourID: tourID, DayID: dayID, ItemID: itemID})
}

// --- Tours ---

// CreateTour validates and stores a new tour.
func (s *Service) CreateTour(ctx context.Context, draft models.TourDraft) (*models.Tour, error) {
	t, err := call(ctx, s, "tour.create", func(ctx context.Context) (*models.Tour, error) {
		if err := draft.Validate(); err != nil {
			return nil, apperr.FromValidation(err)
		}
		t := &models.Tour{Name: draft.Name, StartDate: draft.StartDate, EndDate: draft.EndDate}
		if err := s.store.InsertTour(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventTourCreated, t.ID, "", "")
	return t, nil
}

// GetTour returns one tour.
func (s *Service) GetTour(ctx context.Context, tourID string) (*models.Tour, error) {
	return call(ctx, s, "tour.get", func(ctx context.Context) (*models.Tour, error) {
		return s.store.GetTour(ctx, tourID)
	})
}

// ListTours returns every tour.
func (s *Service) ListTours(ctx context.Context) ([]models.Tour, error) {
	return call(ctx, s, "tour.list", s.store.ListTours)
}

// --- Days ---

// ListDays returns the tour's days in logical order.
func (s *Service) ListDays(ctx context.Context, tourID string) ([]models.Day, error) {
	return call(ctx, s, "day.list", func(ctx context.Context) ([]models.Day, error) {
		if _, err := s.store.GetTour(ctx, tourID); err != nil {
			return nil, err
		}
		return s.days.ListByTour(ctx, tourID)
	})
}

// GetDay returns one day.
func (s *Service) GetDay(ctx context.Context, dayID string) (*models.Day, error) {
	return call(ctx, s, "day.get", func(ctx context.Context) (*models.Day, error) {
		return s.days.Get(ctx, dayID)
	})
}

// CreateDay appends a day to its tour.
func (s *Service) CreateDay(ctx context.Context, draft models.DayDraft) (*models.Day, error) {
	d, err := call(ctx, s, "day.create", func(ctx context.Context) (*models.Day, error) {
		return s.days.Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventDayCreated, d.TourID, d.ID, "")
	return d, nil
}

// UpdateDay writes the day's descriptive fields.
func (s *Service) UpdateDay(ctx context.Context, dayID string, patch models.DayPatch) (*models.Day, error) {
	d, err := call(ctx, s, "day.update", func(ctx context.Context) (*models.Day, error) {
		return s.days.Update(ctx, dayID, patch)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventDayUpdated, d.TourID, d.ID, "")
	return d, nil
}

// DeleteDay removes the day with its items and renumbers the rest of the tour.
func (s *Service) DeleteDay(ctx context.Context, dayID string) error {
	d, err := call(ctx, s, "day.delete", func(ctx context.Context) (*models.Day, error) {
		d, err := s.days.Get(ctx, dayID)
		if err != nil {
			return nil, err
		}
		return d, s.days.Delete(ctx, dayID)
	})
	if err != nil {
		return err
	}
	s.emit(models.EventDayDeleted, d.TourID, d.ID, "")
	return nil
}

// ReorderDays applies a full renumbering of the tour's days.
func (s *Service) ReorderDays(ctx context.Context, tourID string, assignments []models.DayAssignment) ([]models.Day, error) {
	out, err := call(ctx, s, "day.reorder", func(ctx context.Context) ([]models.Day, error) {
		return s.days.Reorder(ctx, tourID, assignments)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventDayReordered, tourID, "", "")
	return out, nil
}

// SwapDays exchanges the numbers of two days of one tour.
func (s *Service) SwapDays(ctx context.Context, dayIDA, dayIDB string) ([]models.Day, error) {
	out, err := call(ctx, s, "day.swap", func(ctx context.Context) ([]models.Day, error) {
		return s.days.Swap(ctx, dayIDA, dayIDB)
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		s.emit(models.EventDayReordered, out[0].TourID, "", "")
	}
	return out, nil
}

// CompactDays renumbers the tour's days 1..n in their current order.
func (s *Service) CompactDays(ctx context.Context, tourID string) ([]models.Day, error) {
	out, err := call(ctx, s, "day.compact", func(ctx context.Context) ([]models.Day, error) {
		return s.days.Compact(ctx, tourID)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventDayReordered, tourID, "", "")
	return out, nil
}

// AssignDayLinks replaces the provided link sets of a day.
func (s *Service) AssignDayLinks(ctx context.Context, dayID string, links models.DayLinks) (*models.Day, error) {
	d, err := call(ctx, s, "day.links", func(ctx context.Context) (*models.Day, error) {
		return s.days.AssignLinks(ctx, dayID, links)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventDayUpdated, d.TourID, d.ID, "")
	return d, nil
}

// DayWithLinks returns the day with its linked records resolved.
func (s *Service) DayWithLinks(ctx context.Context, dayID string) (*models.DayWithLinks, error) {
	return call(ctx, s, "day.links.get", func(ctx context.Context) (*models.DayWithLinks, error) {
		return s.days.WithLinkedItems(ctx, dayID)
	})
}

// --- Items ---

// ListItems returns the day's items by position.
func (s *Service) ListItems(ctx context.Context, dayID string) ([]models.Item, error) {
	return call(ctx, s, "item.list", func(ctx context.Context) ([]models.Item, error) {
		if _, err := s.days.Get(ctx, dayID); err != nil {
			return nil, err
		}
		return s.items.ListByDay(ctx, dayID)
	})
}

// ListTourItems returns the tour's items grouped by day id.
func (s *Service) ListTourItems(ctx context.Context, tourID string) (map[string][]models.Item, error) {
	return call(ctx, s, "item.list_tour", func(ctx context.Context) (map[string][]models.Item, error) {
		if _, err := s.store.GetTour(ctx, tourID); err != nil {
			return nil, err
		}
		return s.items.ListByTour(ctx, tourID)
	})
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	return call(ctx, s, "item.get", func(ctx context.Context) (*models.Item, error) {
		return s.items.Get(ctx, itemID)
	})
}

// CreateItem appends an item to its day. The tour id is taken from the day
// when the draft leaves it empty.
func (s *Service) CreateItem(ctx context.Context, draft models.ItemDraft) (*models.Item, error) {
	it, err := call(ctx, s, "item.create", func(ctx context.Context) (*models.Item, error) {
		if draft.TourID == "" && draft.DayID != "" {
			d, err := s.days.Get(ctx, draft.DayID)
			if err != nil {
				return nil, err
			}
			draft.TourID = d.TourID
		}
		return s.items.Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemCreated, it.TourID, it.DayID, it.ID)
	return it, nil
}

// UpdateItem writes the item's payload fields.
func (s *Service) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	it, err := call(ctx, s, "item.update", func(ctx context.Context) (*models.Item, error) {
		return s.items.Update(ctx, itemID, patch)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemUpdated, it.TourID, it.DayID, it.ID)
	return it, nil
}

// DeleteItem removes the item and closes its day's gap.
func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	it, err := call(ctx, s, "item.delete", func(ctx context.Context) (*models.Item, error) {
		it, err := s.items.Get(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return it, s.items.Delete(ctx, itemID)
	})
	if err != nil {
		return err
	}
	s.emit(models.EventItemDeleted, it.TourID, it.DayID, it.ID)
	return nil
}

// ReorderItems applies a full reordering of the day's items.
func (s *Service) ReorderItems(ctx context.Context, dayID string, assignments []models.ItemAssignment) ([]models.Item, error) {
	var tourID string
	out, err := call(ctx, s, "item.reorder", func(ctx context.Context) ([]models.Item, error) {
		d, err := s.days.Get(ctx, dayID)
		if err != nil {
			return nil, err
		}
		tourID = d.TourID
		return s.items.ReorderWithinDay(ctx, dayID, assignments)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemReordered, tourID, dayID, "")
	return out, nil
}

// CompactItems renumbers the day's items 0..n-1 in their current order.
func (s *Service) CompactItems(ctx context.Context, dayID string) ([]models.Item, error) {
	var tourID string
	out, err := call(ctx, s, "item.compact", func(ctx context.Context) ([]models.Item, error) {
		d, err := s.days.Get(ctx, dayID)
		if err != nil {
			return nil, err
		}
		tourID = d.TourID
		return s.items.Compact(ctx, dayID)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemReordered, tourID, dayID, "")
	return out, nil
}

// MoveItem moves an item to another (or the same) day as one operation.
func (s *Service) MoveItem(ctx context.Context, itemID, newDayID string, newPosition *int) (*models.MoveResult, error) {
	res, err := call(ctx, s, "item.move", func(ctx context.Context) (*models.MoveResult, error) {
		if newDayID == "" {
			return nil, apperr.Invalid("newDayId", "cannot be blank")
		}
		return s.items.MoveToDay(ctx, itemID, newDayID, newPosition)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemMoved, res.Item.TourID, res.ToDayID, res.Item.ID)
	return res, nil
}

// DuplicateItem copies an item to the end of targetDayID.
func (s *Service) DuplicateItem(ctx context.Context, itemID, targetDayID string) (*models.Item, error) {
	it, err := call(ctx, s, "item.duplicate", func(ctx context.Context) (*models.Item, error) {
		if targetDayID == "" {
			return nil, apperr.Invalid("targetDayId", "cannot be blank")
		}
		return s.items.Duplicate(ctx, itemID, targetDayID)
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventItemCreated, it.TourID, it.DayID, it.ID)
	return it, nil
}

// ItemWithLinks returns the item with its taste, route and stay resolved.
func (s *Service) ItemWithLinks(ctx context.Context, itemID string) (*models.ItemWithLinks, error) {
	return call(ctx, s, "item.links.get", func(ctx context.Context) (*models.ItemWithLinks, error) {
		return s.items.WithLinkedData(ctx, itemID)
	})
}

// --- Views ---

// DayView returns the day with its links and its ordered items, each item with
// its own links resolved.
func (s *Service) DayView(ctx context.Context, dayID string) (*models.DayView, error) {
	return call(ctx, s, "view.day", func(ctx context.Context) (*models.DayView, error) {
		d, err := s.days.WithLinkedItems(ctx, dayID)
		if err != nil {
			return nil, err
		}
		list, err := s.items.ListByDay(ctx, dayID)
		if err != nil {
			return nil, err
		}
		view := &models.DayView{DayWithLinks: *d, Items: make([]models.ItemWithLinks, 0, len(list))}
		for _, it := range list {
			linked, err := items.Resolve(ctx, s.store, it)
			if err != nil {
				return nil, err
			}
			view.Items = append(view.Items, *linked)
		}
		return view, nil
	})
}

// TourView returns the tour with its days in order, each with ordered items.
func (s *Service) TourView(ctx context.Context, tourID string) (*models.TourView, error) {
	return call(ctx, s, "view.tour", func(ctx context.Context) (*models.TourView, error) {
		t, err := s.store.GetTour(ctx, tourID)
		if err != nil {
			return nil, err
		}
		dayList, err := s.days.ListByTour(ctx, tourID)
		if err != nil {
			return nil, err
		}
		byDay, err := s.items.ListByTour(ctx, tourID)
		if err != nil {
			return nil, err
		}
		view := &models.TourView{Tour: *t, Days: make([]models.TourDay, len(dayList))}
		for i, d := range dayList {
			its := byDay[d.ID]
			if its == nil {
				its = []models.Item{}
			}
			view.Days[i] = models.TourDay{Day: d, Items: its}
		}
		return view, nil
	})
}
