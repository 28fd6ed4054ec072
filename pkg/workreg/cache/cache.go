// Package cache provides the concurrently-readable mirror of resolved
// registry entries.
//
// The table is single-writer/multi-reader: the registry coordinator owns
// all writes, while any number of callers may read without coordination.
// It is backed by xsync.Map, so reads never block on writes.
//
// The table may lag the coordinator's authoritative store in the direction
// of a miss (a missing key just costs one coordinator round trip). It must
// never serve an entry the coordinator has already removed, which is why
// the coordinator deletes from the table before removing its own record.
package cache

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// Table mirrors resolved key-to-handle bindings for lock-free lookups.
type Table[K comparable, H any] struct {
	m *xsync.Map[K, H]
}

// New creates an empty table.
func New[K comparable, H any]() *Table[K, H] {
	return &Table[K, H]{m: xsync.NewMap[K, H]()}
}

// Get returns the handle for key and whether it is present.
// Safe to call from any goroutine.
func (t *Table[K, H]) Get(key K) (H, bool) {
	return t.m.Load(key)
}

// Put records the handle for key. Writer-side only.
func (t *Table[K, H]) Put(key K, handle H) {
	t.m.Store(key, handle)
}

// Delete removes the key. Writer-side only.
func (t *Table[K, H]) Delete(key K) {
	t.m.Delete(key)
}

// Len returns the number of mirrored entries.
func (t *Table[K, H]) Len() int {
	return t.m.Size()
}

// Range iterates over all entries. The iteration order is not defined.
// If fn returns false, iteration stops.
func (t *Table[K, H]) Range(fn func(key K, handle H) bool) {
	t.m.Range(fn)
}
