// Package catalog keeps the linked-record table in step with a directory of
// Markdown files: tastes/, routes/, stays/ and tickets/, one record per file.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/tourdesk/internal/metrics"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/parser"
	"github.com/starford/tourdesk/internal/storage"
	"github.com/starford/tourdesk/internal/store"
)

// SyncStats reports what a Sync pass changed.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Sync walks the catalog and brings the store up to date:
//   - new/changed files are parsed and upserted
//   - records whose file is gone are deleted
func Sync(ctx context.Context, db store.Catalog, files storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	metas, err := files.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := db.LinkedChecksums(ctx)
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := files.Read(m.Path)
		if err != nil {
			stats.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(ctx, db, m.Path, data); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteLinkedBySource(ctx, p); err != nil {
			stats.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	metrics.CatalogSynced("indexed", stats.Indexed)
	metrics.CatalogSynced("removed", stats.Removed)
	return stats, nil
}

// kindOf maps a catalog-relative path to the kind named by its top directory.
func kindOf(rel string) (models.LinkedKind, error) {
	dir, _, ok := strings.Cut(rel, "/")
	if !ok {
		return "", fmt.Errorf("catalog: %s is not inside a kind directory", rel)
	}
	kind, ok := models.ParseLinkedKind(dir)
	if !ok {
		return "", fmt.Errorf("catalog: unknown kind directory %q", dir)
	}
	return kind, nil
}

// indexFile parses data and replaces whatever the file contributed before.
func indexFile(ctx context.Context, db store.Catalog, rel string, data []byte) error {
	kind, err := kindOf(rel)
	if err != nil {
		return err
	}
	rec, err := parser.Record(kind, rel, data)
	if err != nil {
		return err
	}
	rec.Checksum = storage.Checksum(data)
	rec.UpdatedAt = time.Now().UTC()
	if err := db.DeleteLinkedBySource(ctx, rel); err != nil {
		return err
	}
	return db.UpsertLinked(ctx, rec)
}
