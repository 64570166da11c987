// Package tagstore is the boundary to whatever persists tags alongside
// the image files. The pipeline only sees Store; Sidecar is the bundled
// implementation.
package tagstore

import (
	"errors"
	"fmt"

	"github.com/banshee-data/navtag/internal/tags"
)

// ErrPersistence is matched by every *PersistenceError.
var ErrPersistence = errors.New("tag persistence failed")

// Operation names used in PersistenceError.Op.
const (
	OpLoadHeader = "load_header"
	OpSaveTags   = "save_tags"
)

// PersistenceError reports a failed load or save against one image.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Header is the tag set already present on a source image.
type Header struct {
	// Hardware pulse-per-second capture time, µs since the Unix epoch.
	PPSTimeMicros uint64
	HasPPSTime    bool
	Make          string
	Model         string
	// Fields holds every tag found, keyed by schema name, including the ones
	// broken out above.
	Fields map[string]any
}

// Store loads existing headers and saves tag records.
type Store interface {
	// LoadHeader reads the tags already attached to path.
	LoadHeader(path string) (Header, error)
	// SaveTags writes rec together with a copy of the image at src to dst.
	// The store takes ownership of rec.
	SaveTags(rec *tags.Record, src, dst string) error
}
