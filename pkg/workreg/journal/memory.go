package journal

import (
	"sync"
	"time"
)

// MemoryJournal is an in-memory Journal for testing and single-shot tools.
type MemoryJournal struct {
	mu     sync.RWMutex
	recs   map[string][]Record
	closed bool
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		recs: make(map[string][]Record),
	}
}

// Append implements Journal.
func (j *MemoryJournal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	rec.Sequence = len(j.recs[rec.Registry]) + 1
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	j.recs[rec.Registry] = append(j.recs[rec.Registry], rec)
	return nil
}

// List implements Journal.
func (j *MemoryJournal) List(registry string) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	recs := make([]Record, len(j.recs[registry]))
	copy(recs, j.recs[registry])
	return recs, nil
}

// Close implements Journal.
func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
