package store

import (
	"context"

	"github.com/starford/tourdesk/internal/models"
)

// Repo is the set of row operations on the ordered collections. It is served
// by the connection pool and by a transaction alike.
type Repo interface {
	InsertTour(ctx context.Context, t *models.Tour) error
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	ListTours(ctx context.Context) ([]models.Tour, error)
	// LockTour asserts the tour exists and, where the driver supports it,
	// locks its row until the transaction ends.
	LockTour(ctx context.Context, id string) error

	ListDays(ctx context.Context, tourID string) ([]models.Day, error)
	GetDay(ctx context.Context, id string) (*models.Day, error)
	LockDay(ctx context.Context, id string) (*models.Day, error)
	MaxDayNumber(ctx context.Context, tourID string) (int, error)
	InsertDay(ctx context.Context, d *models.Day) error
	UpdateDay(ctx context.Context, id string, p models.DayPatch) error
	SetDayLinks(ctx context.Context, id string, l models.DayLinks) error
	SetDayNumbers(ctx context.Context, assignments []models.DayAssignment) error
	ShiftDayNumbers(ctx context.Context, tourID string, from, delta int) error
	DeleteDay(ctx context.Context, id string) error

	ListItemsByDay(ctx context.Context, dayID string) ([]models.Item, error)
	ListItemsByTour(ctx context.Context, tourID string) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	MaxPosition(ctx context.Context, dayID string) (int, error)
	InsertItem(ctx context.Context, it *models.Item) error
	UpdateItem(ctx context.Context, id string, p models.ItemPatch) error
	SetItemPositions(ctx context.Context, assignments []models.ItemAssignment) error
	ShiftPositions(ctx context.Context, dayID string, from, delta int) error
	RelocateItem(ctx context.Context, id, dayID, tourID string, position int) error
	DeleteItem(ctx context.Context, id string) error

	Resolver
}

// Resolver looks up linked records. Unknown ids are skipped (LinkedByIDs) or
// reported as nil (LinkedByID); only I/O failures are errors.
type Resolver interface {
	LinkedByIDs(ctx context.Context, kind models.LinkedKind, ids []string) ([]models.LinkedRecord, error)
	LinkedByID(ctx context.Context, kind models.LinkedKind, id string) (*models.LinkedRecord, error)
}

// Catalog is the write side of linked records, fed by the catalog sync.
type Catalog interface {
	Resolver
	UpsertLinked(ctx context.Context, r models.LinkedRecord) error
	DeleteLinked(ctx context.Context, kind models.LinkedKind, id string) error
	DeleteLinkedBySource(ctx context.Context, path string) error
	LinkedChecksums(ctx context.Context) (map[string]string, error)
	ListLinked(ctx context.Context, kind models.LinkedKind) ([]models.LinkedRecord, error)
	SearchLinked(ctx context.Context, query string, limit int) ([]models.LinkedRecord, error)
}

// Store is the position store consumed by the ordering engines.
// Consumers should depend on this interface rather than the concrete *DB type.
type Store interface {
	Repo
	// InTx runs fn in one transaction; any error rolls every write back.
	InTx(ctx context.Context, fn func(Repo) error) error
}

// Verify *DB satisfies the interfaces at compile time.
var (
	_ Store   = (*DB)(nil)
	_ Catalog = (*DB)(nil)
)
