// Package storage defines the catalog file-system abstraction.
package storage

import "github.com/starford/tourdesk/internal/models"

// Provider is the interface for catalog file operations. Paths are relative
// to the catalog root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.CatalogFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
