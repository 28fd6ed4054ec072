package workreg

import (
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg/observability"
)

// EventType classifies a registry transition.
type EventType string

// Event types.
const (
	// EventCreated is published after an entry is committed.
	EventCreated EventType = "created"

	// EventDown is published after a termination notification removes
	// an entry.
	EventDown EventType = "down"

	// EventEvicted is published after an explicit eviction.
	EventEvicted EventType = "evicted"
)

// Event is one observed registry transition.
type Event[K comparable] struct {
	// Type is the transition kind.
	Type EventType

	// Key is the entry key.
	Key K

	// Identity is the worker identity involved.
	Identity string

	// Time is when the transition was processed.
	Time time.Time
}

// Events subscribes to registry transitions. The returned cancel
// function removes the subscription and closes the channel.
//
// Delivery is best-effort: events for a slow subscriber whose buffer is
// full are dropped, never blocking the coordinator. The channel is
// closed when the subscription is cancelled or the registry stops.
func (r *Registry[K, H]) Events() (<-chan Event[K], func()) {
	r.evMu.Lock()
	defer r.evMu.Unlock()

	if r.subs == nil {
		// Registry already stopped.
		ch := make(chan Event[K])
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	ch := make(chan Event[K], r.cfg.EventBuffer)
	r.subs[id] = ch

	cancel := func() {
		r.evMu.Lock()
		defer r.evMu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans an event out to all subscribers. Called only from the
// coordinator goroutine.
func (r *Registry[K, H]) publish(ev Event[K]) {
	r.evMu.Lock()
	defer r.evMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			observability.LogEventDropped(r.set.logger, keyString(ev.Key))
		}
	}
}

// closeSubs closes all subscriber channels. Called once during Stop.
func (r *Registry[K, H]) closeSubs() {
	r.evMu.Lock()
	defer r.evMu.Unlock()
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.subs = nil
}
