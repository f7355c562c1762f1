package state

import (
	"errors"
	"fmt"

	"tekshila/internal/model"
)

// ErrOutOfRange is returned by RemoveAt for an index outside the upload set.
var ErrOutOfRange = errors.New("index out of range")

// AddFiles appends every file whose name is not already present, in input
// order. Names are compared exactly. Returns how many files were appended;
// nothing is notified when that is zero.
func (s *Store) AddFiles(batch []model.FileRef) int {
	seen := make(map[string]bool, len(s.session.Uploads)+len(batch))
	for _, f := range s.session.Uploads {
		seen[f.Name] = true
	}
	var fresh []model.FileRef
	for _, f := range batch {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		fresh = append(fresh, f)
	}
	if len(fresh) == 0 {
		return 0
	}

	next := make([]model.FileRef, 0, len(s.session.Uploads)+len(fresh))
	next = append(next, s.session.Uploads...)
	next = append(next, fresh...)
	s.set(FieldUploads, func(ss *model.Session) { ss.Uploads = next })
	return len(fresh)
}

// RemoveAt removes the upload at index i, shifting later entries down.
func (s *Store) RemoveAt(i int) error {
	n := len(s.session.Uploads)
	if i < 0 || i >= n {
		return fmt.Errorf("remove upload %d of %d: %w", i, n, ErrOutOfRange)
	}
	next := make([]model.FileRef, 0, n-1)
	next = append(next, s.session.Uploads[:i]...)
	next = append(next, s.session.Uploads[i+1:]...)
	s.set(FieldUploads, func(ss *model.Session) { ss.Uploads = next })
	return nil
}

// SetQualityFile replaces the single file queued for quality analysis.
func (s *Store) SetQualityFile(f model.FileRef) {
	s.set(FieldQualityFile, func(ss *model.Session) { ss.QualityFile = &f })
}

// ClearQualityFile empties the quality slot.
func (s *Store) ClearQualityFile() {
	s.set(FieldQualityFile, func(ss *model.Session) { ss.QualityFile = nil })
}
