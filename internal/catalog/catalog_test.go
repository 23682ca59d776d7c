package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/storage"
	"github.com/starford/tourdesk/internal/store"
	"github.com/starford/tourdesk/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

func catalogEnv(t *testing.T) (string, storage.Provider, *store.DB) {
	t.Helper()
	root, files := testutil.TestCatalog(t)
	return root, files, testutil.TestDB(t)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func checksumOf(db store.Catalog, rel string) string {
	sums, _ := db.LinkedChecksums(context.Background())
	return sums[rel]
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSync_IndexesAndRemoves(t *testing.T) {
	root, files, db := catalogEnv(t)
	ctx := context.Background()
	writeFile(t, root, "tastes/soup-curry.md", "---\nname: Soup curry\nlocation: Sapporo\n---\nSpicy.\n")
	writeFile(t, root, "stays/h1.md", "# Hotel Sapporo\n")
	writeFile(t, root, "misc/ignored.md", "# Not a kind\n")

	stats, err := Sync(ctx, db, files, quiet)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Indexed != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	rec, err := db.LinkedByID(ctx, models.KindTaste, "soup-curry")
	if err != nil || rec == nil {
		t.Fatalf("taste not indexed: %v", err)
	}
	if rec.Location != "Sapporo" || rec.Description != "Spicy." {
		t.Errorf("record = %+v", rec)
	}

	// Unchanged files are skipped on the next pass.
	stats, _ = Sync(ctx, db, files, quiet)
	if stats.Indexed != 0 {
		t.Errorf("second pass indexed %d files", stats.Indexed)
	}

	_ = os.Remove(filepath.Join(root, "stays", "h1.md"))
	stats, _ = Sync(ctx, db, files, quiet)
	if stats.Removed != 1 {
		t.Errorf("stats after removal = %+v", stats)
	}
	if got, _ := db.LinkedByID(ctx, models.KindStay, "h1"); got != nil {
		t.Error("stale stay survived sync")
	}
}

func TestSync_IDChangeReplacesRecord(t *testing.T) {
	root, files, db := catalogEnv(t)
	ctx := context.Background()
	writeFile(t, root, "routes/walk.md", "---\nid: r1\nname: Walk\n---\n")
	if _, err := Sync(ctx, db, files, quiet); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "routes/walk.md", "---\nid: r2\nname: Walk\n---\n")
	if _, err := Sync(ctx, db, files, quiet); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.LinkedByID(ctx, models.KindRoute, "r1"); got != nil {
		t.Error("old id still present")
	}
	if got, _ := db.LinkedByID(ctx, models.KindRoute, "r2"); got == nil {
		t.Error("new id missing")
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, files, db := catalogEnv(t)
	writeFile(t, root, "tastes/.keep.md", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, files, root, quiet, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	writeFile(t, root, "tastes/ramen.md", "# Ramen\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return checksumOf(db, "tastes/ramen.md") != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:tastes/ramen.md" || e == "updated:tastes/ramen.md" {
				return true
			}
		}
		return false
	}, "expected a callback for tastes/ramen.md")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, files, db := catalogEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, files, root, quiet, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(root, "tickets"), 0o755)
	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "tickets/pass.md", "# Snow festival pass\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return checksumOf(db, "tickets/pass.md") != ""
	}, "file in new dir not indexed by watcher")
}

func TestWatcher_DeleteRemovesRecord(t *testing.T) {
	root, files, db := catalogEnv(t)
	writeFile(t, root, "stays/h1.md", "# Hotel\n")
	if _, err := Sync(context.Background(), db, files, quiet); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, files, root, quiet, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "stays", "h1.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return checksumOf(db, "stays/h1.md") == ""
	}, "deleted file still in store")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, files, db := catalogEnv(t)
	writeFile(t, root, "routes/old.md", "# Canal walk\n")
	if _, err := Sync(context.Background(), db, files, quiet); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, files, root, quiet, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "routes", "old.md"), filepath.Join(root, "routes", "canal.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return checksumOf(db, "routes/old.md") == "" && checksumOf(db, "routes/canal.md") != ""
	}, "rename reconciliation failed")
}

func TestService_PutAndDelete(t *testing.T) {
	root, files, db := catalogEnv(t)
	ctx := context.Background()
	var changes []string
	svc := NewService(db, files, func(kind, path string) { changes = append(changes, kind+":"+path) })

	rec, err := svc.Put(ctx, models.LinkedRecord{Kind: models.KindStay, ID: "h1", Name: "Hotel Sapporo", Location: "Sapporo"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.SourcePath != "stays/h1.md" || rec.Checksum == "" {
		t.Errorf("record = %+v", rec)
	}
	if _, err := os.Stat(filepath.Join(root, "stays", "h1.md")); err != nil {
		t.Errorf("catalog file not written: %v", err)
	}

	rec, err = svc.Put(ctx, models.LinkedRecord{Kind: models.KindStay, ID: "h1", Name: "Hotel Sapporo Central"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Hotel Sapporo Central" || rec.Location != "" {
		t.Errorf("updated = %+v", rec)
	}

	if err := svc.Delete(ctx, models.KindStay, "h1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, models.KindStay, "h1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "stays", "h1.md")); !os.IsNotExist(err) {
		t.Errorf("file should be gone: %v", err)
	}
	want := []string{"created:stays/h1.md", "updated:stays/h1.md", "deleted:stays/h1.md"}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v", changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change[%d] = %s, want %s", i, changes[i], want[i])
		}
	}
}

func TestService_Validation(t *testing.T) {
	_, files, db := catalogEnv(t)
	svc := NewService(db, files, nil)
	ctx := context.Background()
	bad := []models.LinkedRecord{
		{Kind: models.KindStay, ID: "../escape", Name: "x"},
		{Kind: models.KindStay, ID: "h1"},
		{Kind: "museum", ID: "m1", Name: "x"},
	}
	for _, rec := range bad {
		if _, err := svc.Put(ctx, rec); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Put(%+v) err = %v", rec, err)
		}
	}
	if _, err := svc.Search(ctx, "", 10); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank search err = %v", err)
	}
	if err := svc.Delete(ctx, models.KindRoute, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete err = %v", err)
	}
}
