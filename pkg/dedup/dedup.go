// Package dedup tracks fingerprints of already-processed input files so
// byte-identical re-uploads are skipped regardless of filename. State is
// process-wide and intentionally not persisted: a restart must never
// silently suppress reprocessing.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Fingerprint returns the content hash of raw file bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Processing outcomes recorded per fingerprint. A file is Pending between
// batch submission and the end of its conversion attempt.
const (
	OutcomePending   = "pending"
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
)

// Entry records when a fingerprint was first seen, under which display name,
// and how its conversion ended up.
type Entry struct {
	Name    string
	Outcome string
	SeenAt  time.Time
}

// Store is the dedup contract the upload and batch layers depend on.
type Store interface {
	ShouldSkip(data []byte) bool
	Record(data []byte, name string)
	SetOutcome(data []byte, outcome string)
	Clear()
}

// MemoryStore is the in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   clockwork.Clock
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		entries: make(map[string]Entry),
		clock:   clock,
	}
}

// ShouldSkip reports whether byte-identical content was recorded before.
func (s *MemoryStore) ShouldSkip(data []byte) bool {
	fp := Fingerprint(data)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[fp]
	return ok
}

// Record remembers the content under its display name. Recording the same
// content again keeps the first entry.
func (s *MemoryStore) Record(data []byte, name string) {
	fp := Fingerprint(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[fp]; ok {
		return
	}
	s.entries[fp] = Entry{Name: name, Outcome: OutcomePending, SeenAt: s.clock.Now()}
}

// SetOutcome updates the processing outcome of previously recorded content.
// Unrecorded content is ignored.
func (s *MemoryStore) SetOutcome(data []byte, outcome string) {
	fp := Fingerprint(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fp]
	if !ok {
		return
	}
	e.Outcome = outcome
	s.entries[fp] = e
}

// Lookup returns the entry recorded for the given content.
func (s *MemoryStore) Lookup(data []byte) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[Fingerprint(data)]
	return e, ok
}

// Clear drops all recorded fingerprints.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}

// Len returns the number of distinct fingerprints recorded.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
