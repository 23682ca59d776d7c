package models

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var recordIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// LinkedKind names a family of external records that days and items link to.
type LinkedKind string

const (
	KindTaste  LinkedKind = "taste"
	KindRoute  LinkedKind = "route"
	KindStay   LinkedKind = "stay"
	KindTicket LinkedKind = "ticket"
)

// LinkedKinds lists every known kind.
var LinkedKinds = []LinkedKind{KindTaste, KindRoute, KindStay, KindTicket}

// ParseLinkedKind accepts both the singular kind and its catalog directory name.
func ParseLinkedKind(s string) (LinkedKind, bool) {
	for _, k := range LinkedKinds {
		if s == string(k) || s == k.Dir() {
			return k, true
		}
	}
	return "", false
}

// Dir returns the catalog directory holding records of kind k.
func (k LinkedKind) Dir() string {
	return string(k) + "s"
}

// LinkedRecord is a taste, route, stay or ticket that days and items reference by id.
type LinkedRecord struct {
	Kind        LinkedKind     `json:"kind"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Location    string         `json:"location,omitempty"`
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	SourcePath  string         `json:"sourcePath,omitempty"`
	Checksum    string         `json:"checksum,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Validate checks the fields a catalog write needs.
func (r LinkedRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(KindTaste, KindRoute, KindStay, KindTicket)),
		validation.Field(&r.ID, validation.Required, validation.Length(1, 128), validation.Match(recordIDRe)),
		validation.Field(&r.Name, validation.Required),
	)
}

// CatalogFile is a lightweight listing entry for a catalog file on disk.
type CatalogFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}
