package batch

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/dabops/internal/bundle"
)

// Session holds the documents of the latest batch and an append-only history
// of every document generated, and every workflow that failed, while it
// lives. The caller owns it.
type Session struct {
	ID string

	mu       sync.Mutex
	current  []Generated
	history  []Generated
	failures []Failure
}

func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Current returns the documents shown as the latest results.
func (s *Session) Current() []Generated {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Generated(nil), s.current...)
}

// History returns every generated document, oldest first.
func (s *Session) History() []Generated {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Generated(nil), s.history...)
}

// Failures returns every failed workflow, oldest first.
func (s *Session) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Failure(nil), s.failures...)
}

// previous returns the latest history entry for the same job and mode.
func (s *Session) previous(jobID int64, mode bundle.Mode) (Generated, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if g := s.history[i]; g.JobID == jobID && g.Mode == mode {
			return g, true
		}
	}
	return Generated{}, false
}

func (s *Session) record(clearPrevious bool, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clearPrevious {
		s.current = nil
	}
	s.current = append(s.current, res.Generated...)
	s.history = append(s.history, res.Generated...)
	s.failures = append(s.failures, res.Failures...)
}

// WriteArchive writes the current documents as a ZIP archive.
func (s *Session) WriteArchive(w io.Writer, now time.Time) error {
	return bundle.WriteArchive(w, archiveEntries(s.Current()), now)
}

func archiveEntries(gens []Generated) []bundle.ArchiveEntry {
	entries := make([]bundle.ArchiveEntry, 0, len(gens))
	for _, g := range gens {
		entries = append(entries, bundle.ArchiveEntry{Name: g.FileName, Content: g.Content})
	}
	return entries
}
