package catalog

import (
	"github.com/banshee-data/navtag/internal/tags"
	"github.com/banshee-data/navtag/internal/tagstore"
)

// OpRecordTag names a catalog write in tagstore.PersistenceError.Op.
const OpRecordTag = "record_tag"

// Wrap returns a store that records every successful save under runID.
// The image and its tags are already on disk when the catalog insert
// runs; a failed insert is still reported as a persistence failure.
func (c *Catalog) Wrap(runID string, inner tagstore.Store) tagstore.Store {
	return &recordingStore{inner: inner, cat: c, runID: runID}
}

type recordingStore struct {
	inner tagstore.Store
	cat   *Catalog
	runID string
}

func (s *recordingStore) LoadHeader(path string) (tagstore.Header, error) {
	return s.inner.LoadHeader(path)
}

func (s *recordingStore) SaveTags(rec *tags.Record, src, dst string) error {
	if err := s.inner.SaveTags(rec, src, dst); err != nil {
		return err
	}
	if err := s.cat.RecordTag(s.runID, src, dst, rec); err != nil {
		return &tagstore.PersistenceError{Op: OpRecordTag, Path: dst, Err: err}
	}
	return nil
}
