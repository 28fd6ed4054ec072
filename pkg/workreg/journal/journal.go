// Package journal provides an append-only record of registry transitions.
//
// The journal is diagnostic: it captures entry lifecycle transitions
// (created, down, evicted) for post-mortem inspection. It is never read
// back on startup — a restarted registry begins empty regardless of what
// the journal contains.
package journal

import (
	"errors"
	"time"
)

// Event names recorded in the journal.
const (
	EventCreated = "created"
	EventDown    = "down"
	EventEvicted = "evicted"
)

// Record is one registry transition.
type Record struct {
	// Registry is the name of the registry that made the transition.
	Registry string

	// Key is the entry key, formatted with %v.
	Key string

	// Event is one of EventCreated, EventDown, EventEvicted.
	Event string

	// Identity is the worker identity involved in the transition.
	Identity string

	// Sequence orders records within a registry. Assigned on append.
	Sequence int

	// Timestamp is when the transition was recorded.
	Timestamp time.Time
}

// Journal persists registry transitions.
// Implementations must be safe for concurrent use.
type Journal interface {
	// Append stores a record. The record's Sequence is assigned by the
	// journal; the caller's value is ignored.
	Append(rec Record) error

	// List returns all records for a registry, ordered by sequence.
	// Returns an empty slice (not an error) if there are none.
	List(registry string) ([]Record, error)

	// Close releases any resources.
	Close() error
}

// Sentinel errors for journal operations.
var (
	// ErrJournalClosed indicates the journal has been closed.
	ErrJournalClosed = errors.New("journal closed")
)
