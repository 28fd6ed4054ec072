// Package monitor provides death-notification subscriptions for worker
// identities.
//
// A Monitor watches an identity's Done channel and invokes a notify
// callback exactly once when the worker terminates. Watches established
// against an already-dead identity still fire: a closed Done channel is
// immediately ready, so the late subscription delivers one notification
// rather than zero. Cancelling a watch suppresses the notification.
//
// The notify callback runs on the watch's own goroutine and may block;
// the Monitor never serializes deliveries for different identities.
package monitor

import (
	"sync"

	"github.com/google/uuid"
)

// Watchable is a worker identity the monitor can observe.
type Watchable interface {
	// ID uniquely identifies the worker.
	ID() string

	// Done is closed when the worker terminates.
	Done() <-chan struct{}
}

// Token identifies an active watch for cancellation.
type Token struct {
	id string
}

// Monitor tracks termination of watched identities.
// All methods are safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	watches map[string]chan struct{}
	closed  bool
}

// New creates a Monitor with no active watches.
func New() *Monitor {
	return &Monitor{
		watches: make(map[string]chan struct{}),
	}
}

// Watch begins observing target and calls notify with the target's ID
// when it terminates. If the monitor is already closed, no watch is
// established and the zero Token is returned.
//
// Exactly one of the following happens per watch: notify is called once,
// or the watch is cancelled (via Cancel or Close) before death is
// observed. When death and cancellation race, either outcome is
// permitted; callers must treat notifications as idempotent.
func (m *Monitor) Watch(target Watchable, notify func(id string)) Token {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Token{}
	}
	token := Token{id: uuid.NewString()}
	cancel := make(chan struct{})
	m.watches[token.id] = cancel
	m.mu.Unlock()

	go func() {
		select {
		case <-target.Done():
			notify(target.ID())
		case <-cancel:
		}
		m.remove(token.id)
	}()

	return token
}

// Cancel stops the watch identified by token without notifying.
// Cancelling a zero, unknown, or already-finished token is a no-op.
func (m *Monitor) Cancel(token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.watches[token.id]; ok {
		close(cancel)
		delete(m.watches, token.id)
	}
}

// Len returns the number of active watches.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

// Close cancels all active watches. No notifications are delivered for
// watches cancelled this way. Watch calls after Close are no-ops.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, cancel := range m.watches {
		close(cancel)
		delete(m.watches, id)
	}
}

// remove clears bookkeeping once a watch goroutine finishes.
func (m *Monitor) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[id]; ok {
		delete(m.watches, id)
	}
}
