package catalog

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/parser"
	"github.com/starford/tourdesk/internal/storage"
	"github.com/starford/tourdesk/internal/store"
)

// Service reads and edits linked records. Writes go to the catalog files first
// and are then indexed, so the files stay the source of truth.
type Service struct {
	db       store.Catalog
	files    storage.Provider
	onChange EventCallback
}

// NewService creates a catalog service. onChange may be nil.
func NewService(db store.Catalog, files storage.Provider, onChange EventCallback) *Service {
	return &Service{db: db, files: files, onChange: onChange}
}

func (s *Service) changed(kind, rel string) {
	if s.onChange != nil {
		s.onChange(kind, rel)
	}
}

// List returns every record of kind.
func (s *Service) List(ctx context.Context, kind models.LinkedKind) ([]models.LinkedRecord, error) {
	return s.db.ListLinked(ctx, kind)
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, kind models.LinkedKind, id string) (*models.LinkedRecord, error) {
	rec, err := s.db.LinkedByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound(string(kind), id)
	}
	return rec, nil
}

// Search matches records by name, location or description.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.LinkedRecord, error) {
	if query == "" {
		return nil, apperr.Invalid("q", "cannot be blank")
	}
	return s.db.SearchLinked(ctx, query, limit)
}

// Put writes rec to its catalog file (creating <kind>s/<id>.md when the
// record is new) and indexes it.
func (s *Service) Put(ctx context.Context, rec models.LinkedRecord) (*models.LinkedRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	rel := path.Join(rec.Kind.Dir(), rec.ID+".md")
	action := "created"
	existing, err := s.db.LinkedByID(ctx, rec.Kind, rec.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		action = "updated"
		if existing.SourcePath != "" {
			rel = existing.SourcePath
		}
	}

	data, err := parser.Render(rec)
	if err != nil {
		return nil, apperr.Invalid("attributes", "%v", err)
	}
	if err := s.files.Write(rel, data); err != nil {
		return nil, apperr.Store("write catalog file", err)
	}
	if err := indexFile(ctx, s.db, rel, data); err != nil {
		return nil, err
	}
	s.changed(action, rel)
	return s.Get(ctx, rec.Kind, rec.ID)
}

// Delete removes the record's catalog file and its stored row.
func (s *Service) Delete(ctx context.Context, kind models.LinkedKind, id string) error {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if rec.SourcePath == "" {
		return s.db.DeleteLinked(ctx, kind, id)
	}
	if err := s.files.Delete(rec.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Store("delete catalog file", err)
	}
	if err := s.db.DeleteLinkedBySource(ctx, rec.SourcePath); err != nil {
		return err
	}
	s.changed("deleted", rec.SourcePath)
	return nil
}
