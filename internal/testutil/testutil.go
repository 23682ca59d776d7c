// Package testutil provides shared test helpers for setting up stores, tours and catalogs.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/storage"
	"github.com/starford/tourdesk/internal/store"
)

// TestDB creates a temporary SQLite position store that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tourdesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(store.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Tour inserts a tour named name.
func Tour(t *testing.T, db store.Repo, name string) *models.Tour {
	t.Helper()
	tour := &models.Tour{Name: name}
	if err := db.InsertTour(context.Background(), tour); err != nil {
		t.Fatalf("InsertTour: %v", err)
	}
	return tour
}

// TestCatalog creates a temporary catalog directory with a storage.Provider.
func TestCatalog(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Day appends a day dated date to the tour.
func Day(t *testing.T, db store.Repo, tourID, date string) *models.Day {
	t.Helper()
	ctx := context.Background()
	last, err := db.MaxDayNumber(ctx, tourID)
	if err != nil {
		t.Fatalf("MaxDayNumber: %v", err)
	}
	d := &models.Day{TourID: tourID, CalendarDate: date, LogicalDayNumber: last + 1}
	if err := db.InsertDay(ctx, d); err != nil {
		t.Fatalf("InsertDay: %v", err)
	}
	return d
}
