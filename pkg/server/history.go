package server

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/olaria/ddlconv/pkg/batch"
)

// HistoryEntry is one successful conversion of the current session.
type HistoryEntry struct {
	File        string    `json:"file"`
	TableName   string    `json:"tableName"`
	ColumnCount int       `json:"columnCount"`
	ConvertedAt time.Time `json:"convertedAt"`
}

// History accumulates successful conversions for the session. It is fed by
// the batch registry's result callback and cleared with the cache.
type History struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries []HistoryEntry
}

func NewHistory(clock clockwork.Clock) *History {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &History{clock: clock}
}

// Add records a conversion result. Usable as a batch.Registry OnResult hook.
func (h *History) Add(res batch.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HistoryEntry{
		File:        res.File,
		TableName:   res.TableName,
		ColumnCount: res.ColumnCount,
		ConvertedAt: h.clock.Now(),
	})
}

// List returns the session history, newest first.
func (h *History) List() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := slices.Clone(h.entries)
	slices.Reverse(out)
	return out
}

// Reset drops the session history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
