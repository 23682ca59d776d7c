package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
)

const linkedColumns = `kind, id, name, location, url, description, attributes, source_path, checksum, updated_at`

func scanLinked(s rowScanner) (models.LinkedRecord, error) {
	var (
		r     models.LinkedRecord
		kind  string
		attrs string
	)
	err := s.Scan(&kind, &r.ID, &r.Name, &r.Location, &r.URL, &r.Description, &attrs, &r.SourcePath,
		&r.Checksum, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Kind = models.LinkedKind(kind)
	if attrs != "" && attrs != "{}" {
		_ = json.Unmarshal([]byte(attrs), &r.Attributes)
	}
	return r, nil
}

func (q *Queries) listLinked(ctx context.Context, op, query string, args ...any) ([]models.LinkedRecord, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	out := []models.LinkedRecord{}
	for rows.Next() {
		r, err := scanLinked(rows)
		if err != nil {
			return nil, apperr.Store("scan linked record", err)
		}
		out = append(out, r)
	}
	return out, apperr.Store(op, rows.Err())
}

// LinkedByIDs returns the records of kind with the given ids, in the order the
// ids were requested. Ids that do not resolve are skipped.
func (q *Queries) LinkedByIDs(ctx context.Context, kind models.LinkedKind, ids []string) ([]models.LinkedRecord, error) {
	if len(ids) == 0 {
		return []models.LinkedRecord{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(kind))
	for _, id := range ids {
		args = append(args, id)
	}
	found, err := q.listLinked(ctx, "linked by ids", `SELECT `+linkedColumns+` FROM linked_records
		WHERE kind = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.LinkedRecord, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	out := make([]models.LinkedRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// LinkedByID returns the record of kind with id, or nil when there is none.
func (q *Queries) LinkedByID(ctx context.Context, kind models.LinkedKind, id string) (*models.LinkedRecord, error) {
	if id == "" {
		return nil, nil
	}
	r, err := scanLinked(q.queryRow(ctx, `SELECT `+linkedColumns+` FROM linked_records WHERE kind = ? AND id = ?`,
		string(kind), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("linked by id", err)
	}
	return &r, nil
}

// UpsertLinked inserts or replaces a linked record.
func (q *Queries) UpsertLinked(ctx context.Context, r models.LinkedRecord) error {
	attrs := []byte("{}")
	if len(r.Attributes) > 0 {
		b, err := json.Marshal(r.Attributes)
		if err != nil {
			return apperr.Invalid("attributes", "%v", err)
		}
		attrs = b
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx, `
		INSERT INTO linked_records (`+linkedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			name        = excluded.name,
			location    = excluded.location,
			url         = excluded.url,
			description = excluded.description,
			attributes  = excluded.attributes,
			source_path = excluded.source_path,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, string(r.Kind), r.ID, r.Name, r.Location, r.URL, r.Description, string(attrs), r.SourcePath, r.Checksum, r.UpdatedAt)
	return apperr.Store("upsert linked record", err)
}

// DeleteLinked removes one record.
func (q *Queries) DeleteLinked(ctx context.Context, kind models.LinkedKind, id string) error {
	res, err := q.exec(ctx, `DELETE FROM linked_records WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return apperr.Store("delete linked record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(string(kind), id)
	}
	return nil
}

// DeleteLinkedBySource removes every record loaded from the catalog file at path.
func (q *Queries) DeleteLinkedBySource(ctx context.Context, path string) error {
	_, err := q.exec(ctx, `DELETE FROM linked_records WHERE source_path = ?`, path)
	return apperr.Store("delete linked by source", err)
}

// LinkedChecksums maps each catalog source path to its stored checksum.
func (q *Queries) LinkedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := q.query(ctx, `SELECT source_path, checksum FROM linked_records WHERE source_path <> ''`)
	if err != nil {
		return nil, apperr.Store("linked checksums", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, apperr.Store("scan checksum", err)
		}
		out[p] = cs
	}
	return out, apperr.Store("linked checksums", rows.Err())
}

// ListLinked returns every record of kind ordered by name.
func (q *Queries) ListLinked(ctx context.Context, kind models.LinkedKind) ([]models.LinkedRecord, error) {
	return q.listLinked(ctx, "list linked", `SELECT `+linkedColumns+` FROM linked_records
		WHERE kind = ? ORDER BY name, id`, string(kind))
}

// SearchLinked performs a case-insensitive LIKE search over names, locations and descriptions.
func (q *Queries) SearchLinked(ctx context.Context, query string, limit int) ([]models.LinkedRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + strings.ToLower(query) + "%"
	return q.listLinked(ctx, "search linked", `SELECT `+linkedColumns+` FROM linked_records
		WHERE LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY kind, name
		LIMIT ?`, like, like, like, limit)
}
