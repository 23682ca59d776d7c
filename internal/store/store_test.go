package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "tourdesk-store-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})

	db, err := Open(DriverSQLite, f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"tours", "tour_days", "day_items", "linked_records"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestSchema_OrderingKeysUniqueOnPostgres(t *testing.T) {
	for _, c := range []string{
		"CONSTRAINT uq_tour_days_order UNIQUE (tour_id, logical_day_number) DEFERRABLE INITIALLY DEFERRED",
		"CONSTRAINT uq_day_items_order UNIQUE (day_id, position) DEFERRABLE INITIALLY DEFERRED",
	} {
		if !strings.Contains(postgresSchemaSQL, c) {
			t.Errorf("postgres schema missing %q", c)
		}
	}
	for _, s := range []string{sqliteSchemaSQL, postgresSchemaSQL} {
		if strings.Contains(s, "{{") {
			t.Errorf("unreplaced placeholder in schema:\n%s", s)
		}
	}
	if strings.Contains(sqliteSchemaSQL, "UNIQUE") || strings.Contains(sqliteSchemaSQL, "TIMESTAMPTZ") {
		t.Error("sqlite schema carries postgres-only clauses")
	}
}

// A swap writes the same number twice inside one transaction; the store must
// accept the transient duplicate as long as the committed state is dense.
func TestSetDayNumbers_SwapInsideTx(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tour := &models.Tour{Name: "Swap"}
	if err := db.InsertTour(ctx, tour); err != nil {
		t.Fatal(err)
	}
	a := &models.Day{TourID: tour.ID, CalendarDate: "2025-01-10", LogicalDayNumber: 1}
	b := &models.Day{TourID: tour.ID, CalendarDate: "2025-01-11", LogicalDayNumber: 2}
	for _, d := range []*models.Day{a, b} {
		if err := db.InsertDay(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	err := db.InTx(ctx, func(r Repo) error {
		return r.SetDayNumbers(ctx, []models.DayAssignment{
			{DayID: a.ID, NewLogicalDayNumber: 2},
			{DayID: b.ID, NewLogicalDayNumber: 1},
		})
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	days, err := db.ListDays(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if days[0].ID != b.ID || days[1].ID != a.ID {
		t.Errorf("order after swap = %s, %s", days[0].ID, days[1].ID)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a = ?, b = ? WHERE id = ?`
	if got := dialectSQLite.rebind(q); got != q {
		t.Errorf("sqlite rebind = %q", got)
	}
	want := `UPDATE t SET a = $1, b = $2 WHERE id = $3`
	if got := dialectPostgres.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if dialectSQLite.forUpdate() != "" || dialectPostgres.forUpdate() != " FOR UPDATE" {
		t.Error("unexpected lock suffixes")
	}
}

func TestWithParams(t *testing.T) {
	if got := withParams("a.db", "x=1"); got != "a.db?x=1" {
		t.Errorf("got %q", got)
	}
	if got := withParams("file:a.db?cache=shared", "x=1"); got != "file:a.db?cache=shared&x=1" {
		t.Errorf("got %q", got)
	}
}

func TestDayLists_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tour := &models.Tour{Name: "Kyoto"}
	if err := db.InsertTour(ctx, tour); err != nil {
		t.Fatal(err)
	}
	d := &models.Day{TourID: tour.ID, CalendarDate: "2025-04-01", LogicalDayNumber: 1, TastesIDs: []string{"a", "b"}}
	if err := db.InsertDay(ctx, d); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetDay(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.TastesIDs) != 2 || got.TastesIDs[1] != "b" {
		t.Errorf("tastes = %v", got.TastesIDs)
	}
	if got.RoutesIDs == nil || len(got.RoutesIDs) != 0 {
		t.Errorf("routes = %#v, want empty list", got.RoutesIDs)
	}
	if n, err := db.MaxDayNumber(ctx, tour.ID); err != nil || n != 1 {
		t.Errorf("MaxDayNumber = %d, %v", n, err)
	}
	if n, err := db.MaxPosition(ctx, d.ID); err != nil || n != -1 {
		t.Errorf("MaxPosition on empty day = %d, %v", n, err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := testDB(t)
	title := "x"
	err := db.UpdateDay(context.Background(), "ghost", models.DayPatch{Title: &title})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestLinkedByIDs_KeepsRequestOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := db.UpsertLinked(ctx, models.LinkedRecord{Kind: models.KindTaste, ID: id, Name: "taste " + id}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.LinkedByIDs(ctx, models.KindTaste, []string{"c", "missing", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("got %+v", got)
	}
	other, err := db.LinkedByIDs(ctx, models.KindRoute, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("kind leaked: %+v", other)
	}
}

func TestUpsertLinked_Replaces(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rec := models.LinkedRecord{
		Kind: models.KindStay, ID: "h1", Name: "Old name",
		Attributes: map[string]any{"stars": 4}, SourcePath: "stays/h1.md", Checksum: "1",
	}
	if err := db.UpsertLinked(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Name, rec.Checksum = "New name", "2"
	if err := db.UpsertLinked(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := db.LinkedByID(ctx, models.KindStay, "h1")
	if err != nil || got == nil {
		t.Fatalf("LinkedByID: %v, %v", got, err)
	}
	if got.Name != "New name" || got.Attributes["stars"] != float64(4) {
		t.Errorf("got %+v", got)
	}
	sums, err := db.LinkedChecksums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sums["stays/h1.md"] != "2" {
		t.Errorf("checksums = %v", sums)
	}

	if err := db.DeleteLinkedBySource(ctx, "stays/h1.md"); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.LinkedByID(ctx, models.KindStay, "h1"); got != nil {
		t.Error("record should be gone")
	}
	if err := db.DeleteLinked(ctx, models.KindStay, "h1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSearchLinked(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertLinked(ctx, models.LinkedRecord{Kind: models.KindRoute, ID: "r1", Name: "Philosopher's Path", Location: "Kyoto"})
	_ = db.UpsertLinked(ctx, models.LinkedRecord{Kind: models.KindTaste, ID: "t1", Name: "Ramen", Location: "Sapporo"})

	got, err := db.SearchLinked(ctx, "KYOTO", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("got %+v", got)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := db.InTx(ctx, func(r Repo) error {
		if err := r.InsertTour(ctx, &models.Tour{ID: "t1", Name: "rolled back"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := db.GetTour(ctx, "t1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("tour survived rollback: %v", err)
	}
}
