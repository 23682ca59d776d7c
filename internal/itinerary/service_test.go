package itinerary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/store"
	"github.com/starford/tourdesk/internal/testutil"
)

type recorder struct {
	mu      sync.Mutex
	changes []models.Change
}

func (r *recorder) PublishChange(c models.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Type
	}
	return out
}

func testService(t *testing.T) (*Service, *store.DB, *recorder) {
	t.Helper()
	db := testutil.TestDB(t)
	rec := &recorder{}
	return NewService(db, WithNotifier(rec), WithOpTimeout(5*time.Second)), db, rec
}

func seedTour(t *testing.T, svc *Service, dates ...string) (*models.Tour, []*models.Day) {
	t.Helper()
	ctx := context.Background()
	tour, err := svc.CreateTour(ctx, models.TourDraft{Name: "Hokkaido winter", StartDate: "2025-01-10"})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}
	var out []*models.Day
	for _, date := range dates {
		d, err := svc.CreateDay(ctx, models.DayDraft{TourID: tour.ID, CalendarDate: date})
		if err != nil {
			t.Fatalf("CreateDay: %v", err)
		}
		out = append(out, d)
	}
	return tour, out
}

func addItem(t *testing.T, svc *Service, dayID, title string) *models.Item {
	t.Helper()
	it, err := svc.CreateItem(context.Background(), models.ItemDraft{DayID: dayID, ItemType: models.ItemActivity, Title: title})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return it
}

func TestCreateItem_FillsTourFromDay(t *testing.T) {
	svc, _, rec := testService(t)
	tour, days := seedTour(t, svc, "2025-01-10")
	it := addItem(t, svc, days[0].ID, "Snow festival")
	if it.TourID != tour.ID || it.Position != 0 {
		t.Errorf("item = %+v", it)
	}
	want := []string{models.EventTourCreated, models.EventDayCreated, models.EventItemCreated}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMoveItem_EmitsAndKeepsDensity(t *testing.T) {
	svc, _, rec := testService(t)
	ctx := context.Background()
	tour, days := seedTour(t, svc, "2025-01-10", "2025-01-11")
	a := addItem(t, svc, days[0].ID, "A")
	addItem(t, svc, days[0].ID, "B")
	c := addItem(t, svc, days[1].ID, "C")

	res, err := svc.MoveItem(ctx, a.ID, days[1].ID, nil)
	if err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	if res.FromDayID != days[0].ID || res.ToDayID != days[1].ID || res.Item.Position != 1 {
		t.Errorf("result = %+v", res)
	}

	view, err := svc.TourView(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Days) != 2 {
		t.Fatalf("days = %d", len(view.Days))
	}
	first, second := view.Days[0].Items, view.Days[1].Items
	if len(first) != 1 || first[0].Title != "B" || first[0].Position != 0 {
		t.Errorf("source day = %+v", first)
	}
	if len(second) != 2 || second[0].ID != c.ID || second[1].ID != a.ID {
		t.Errorf("target day = %+v", second)
	}

	last := rec.changes[len(rec.changes)-1]
	if last.Type != models.EventItemMoved || last.DayID != days[1].ID || last.ItemID != a.ID || last.TourID != tour.ID {
		t.Errorf("last event = %+v", last)
	}

	if _, err := svc.MoveItem(ctx, a.ID, "", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank day err = %v", err)
	}
}

func TestFailedMutation_EmitsNothing(t *testing.T) {
	svc, _, rec := testService(t)
	ctx := context.Background()
	_, days := seedTour(t, svc, "2025-01-10")
	before := len(rec.types())

	if _, err := svc.ReorderItems(ctx, days[0].ID, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v", err)
	}
	if err := svc.DeleteItem(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if got := len(rec.types()); got != before {
		t.Errorf("events after failures = %d, want %d", got, before)
	}
}

func TestBlankTargetDay_IsValidation(t *testing.T) {
	svc, _, rec := testService(t)
	ctx := context.Background()
	_, days := seedTour(t, svc, "2025-01-10")
	it := addItem(t, svc, days[0].ID, "Lunch")
	before := len(rec.types())

	var verr *apperr.ValidationError
	_, err := svc.DuplicateItem(ctx, it.ID, "")
	if !errors.As(err, &verr) || verr.Field != "targetDayId" {
		t.Errorf("DuplicateItem err = %v, want targetDayId validation", err)
	}
	_, err = svc.MoveItem(ctx, it.ID, "", nil)
	if !errors.As(err, &verr) || verr.Field != "newDayId" {
		t.Errorf("MoveItem err = %v, want newDayId validation", err)
	}
	if got := len(rec.types()); got != before {
		t.Errorf("events after rejected calls = %d, want %d", got, before)
	}
}

func TestDayView(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()
	_, days := seedTour(t, svc, "2025-01-10")
	if err := db.UpsertLinked(ctx, models.LinkedRecord{Kind: models.KindStay, ID: "h1", Name: "Hotel Sapporo"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertLinked(ctx, models.LinkedRecord{Kind: models.KindTaste, ID: "t1", Name: "Soup curry"}); err != nil {
		t.Fatal(err)
	}
	hotel := "h1"
	if _, err := svc.AssignDayLinks(ctx, days[0].ID, models.DayLinks{HotelID: &hotel}); err != nil {
		t.Fatal(err)
	}
	lunch, err := svc.CreateItem(ctx, models.ItemDraft{DayID: days[0].ID, ItemType: models.ItemLunch, TastesID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	addItem(t, svc, days[0].ID, "Walk")

	view, err := svc.DayView(ctx, days[0].ID)
	if err != nil {
		t.Fatalf("DayView: %v", err)
	}
	if view.LinkedHotel == nil || view.LinkedHotel.Name != "Hotel Sapporo" {
		t.Errorf("hotel = %+v", view.LinkedHotel)
	}
	if len(view.Items) != 2 || view.Items[0].ID != lunch.ID {
		t.Fatalf("items = %+v", view.Items)
	}
	if view.Items[0].Taste == nil || view.Items[0].Taste.Name != "Soup curry" {
		t.Errorf("taste = %+v", view.Items[0].Taste)
	}
	if view.Items[1].Taste != nil {
		t.Errorf("unlinked item resolved a taste: %+v", view.Items[1].Taste)
	}
	if _, err := svc.DayView(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestTourView_EmptyDaysHaveEmptyItems(t *testing.T) {
	svc, _, _ := testService(t)
	tour, _ := seedTour(t, svc, "2025-01-10", "2025-01-11")
	view, err := svc.TourView(context.Background(), tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range view.Days {
		if d.Items == nil {
			t.Errorf("day %d items = nil, want []", d.LogicalDayNumber)
		}
	}
	if view.Days[0].LogicalDayNumber != 1 || view.Days[1].LogicalDayNumber != 2 {
		t.Errorf("days out of order: %+v", view.Days)
	}
}

func TestDeleteDay_RenumbersAndEmits(t *testing.T) {
	svc, _, rec := testService(t)
	ctx := context.Background()
	tour, days := seedTour(t, svc, "2025-01-10", "2025-01-11", "2025-01-12")
	if err := svc.DeleteDay(ctx, days[0].ID); err != nil {
		t.Fatal(err)
	}
	list, err := svc.ListDays(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != days[1].ID || list[0].LogicalDayNumber != 1 || list[1].LogicalDayNumber != 2 {
		t.Errorf("days = %+v", list)
	}
	last := rec.changes[len(rec.changes)-1]
	if last.Type != models.EventDayDeleted || last.DayID != days[0].ID {
		t.Errorf("last event = %+v", last)
	}
}

func TestListDays_UnknownTour(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.ListDays(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.ListTourItems(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestCreateTour_Validation(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.CreateTour(context.Background(), models.TourDraft{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v", err)
	}
}

// slowStore blocks ListDays until the caller's deadline passes.
type slowStore struct {
	*store.DB
}

func (slowStore) ListDays(ctx context.Context, _ string) ([]models.Day, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDeadline_IsRetryableStoreError(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewService(slowStore{db}, WithOpTimeout(20*time.Millisecond))
	ctx := context.Background()
	tour, err := svc.CreateTour(ctx, models.TourDraft{Name: "slow"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.ListDays(ctx, tour.ID)
	if !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("err = %v, want store error", err)
	}
	if !apperr.IsRetryable(err) {
		t.Errorf("deadline error should be retryable: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err should wrap DeadlineExceeded: %v", err)
	}
}
