package workreg

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg/journal"
	"github.com/randalmurphal/workreg/pkg/workreg/monitor"
	"github.com/randalmurphal/workreg/pkg/workreg/observability"
)

// entry binds a key to a live worker. Entries are immutable; a key goes
// absent -> present -> absent, never mutated in place.
type entry[H any] struct {
	handle H
	ident  Identity
	// watch is the monitor's subscription handle. Opaque bookkeeping;
	// used only for cancellation on eviction.
	watch monitor.Token
}

// Coordinator commands. Exactly one command is processed at a time, in
// the order received; that ordering is the exactly-once-creation
// guarantee.

type lookupCmd[K comparable, H any] struct {
	ctx     context.Context
	key     K
	factory Factory[H]
	reply   chan lookupReply[H]
}

type lookupReply[H any] struct {
	handle  H
	created bool
	err     error
}

type getCmd[K comparable, H any] struct {
	key   K
	reply chan getReply[H]
}

type getReply[H any] struct {
	handle H
	ok     bool
}

type evictCmd[K comparable] struct {
	key   K
	reply chan bool
}

type downCmd struct {
	identID string
}

type lenCmd struct {
	reply chan int
}

type keysCmd[K comparable] struct {
	reply chan []K
}

// coordinator owns the entry store. Only the loop goroutine touches it.
type coordinator[K comparable, H any] struct {
	reg     *Registry[K, H]
	store   map[K]entry[H]
	byIdent map[string]K
}

// loop processes commands until the registry closes. Entry store state
// lives on this goroutine's stack, so no other code path can touch it.
func (r *Registry[K, H]) loop() {
	defer close(r.loopDone)

	c := &coordinator[K, H]{
		reg:     r,
		store:   make(map[K]entry[H]),
		byIdent: make(map[string]K),
	}

	for {
		select {
		case cmd := <-r.reqs:
			c.dispatch(cmd)
		case <-r.closed:
			observability.LogRegistryStop(r.set.logger, r.cfg.Name, len(c.store))
			return
		}
	}
}

func (c *coordinator[K, H]) dispatch(cmd any) {
	switch cmd := cmd.(type) {
	case lookupCmd[K, H]:
		c.handleLookup(cmd)
	case getCmd[K, H]:
		e, ok := c.store[cmd.key]
		cmd.reply <- getReply[H]{handle: e.handle, ok: ok}
	case evictCmd[K]:
		cmd.reply <- c.handleEvict(cmd.key)
	case downCmd:
		c.handleDown(cmd.identID)
	case lenCmd:
		cmd.reply <- len(c.store)
	case keysCmd[K]:
		keys := make([]K, 0, len(c.store))
		for k := range c.store {
			keys = append(keys, k)
		}
		cmd.reply <- keys
	}
}

// handleLookup serves a hit from the store or runs the factory. The
// factory executes on this turn, which is what prevents two concurrent
// creators for the same key.
func (c *coordinator[K, H]) handleLookup(cmd lookupCmd[K, H]) {
	r := c.reg

	if e, ok := c.store[cmd.key]; ok {
		cmd.reply <- lookupReply[H]{handle: e.handle}
		return
	}

	// The command's context is used for span parentage only; an expired
	// caller does not abort the factory.
	fctx, span := r.set.spans.StartFactorySpan(cmd.ctx, keyString(cmd.key))
	start := time.Now()
	handle, ident, err := cmd.factory()
	r.set.metrics.RecordCreation(fctx, r.cfg.Name, time.Since(start), err)
	r.set.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogFactoryError(r.set.logger, keyString(cmd.key), err)
		cmd.reply <- lookupReply[H]{err: &FactoryError{Key: keyString(cmd.key), Err: err}}
		return
	}
	if !ident.valid() {
		observability.LogFactoryError(r.set.logger, keyString(cmd.key), ErrInvalidIdentity)
		cmd.reply <- lookupReply[H]{err: ErrInvalidIdentity}
		return
	}

	token := r.mon.Watch(ident, r.notifyDown)
	c.store[cmd.key] = entry[H]{handle: handle, ident: ident, watch: token}
	c.byIdent[ident.ID()] = cmd.key

	// Cache population strictly after the store commit above, still on
	// this turn, so the mirror never leads the authoritative store.
	if r.table != nil {
		r.table.Put(cmd.key, handle)
	}

	c.journal(cmd.key, journal.EventCreated, ident.ID())
	r.publish(Event[K]{Type: EventCreated, Key: cmd.key, Identity: ident.ID(), Time: time.Now()})
	observability.LogWorkerCreated(r.set.logger, keyString(cmd.key), ident.ID(),
		float64(time.Since(start).Milliseconds()))

	cmd.reply <- lookupReply[H]{handle: handle, created: true}
}

// handleDown removes the entry watched under identID. Unknown identities
// are ignored, which makes duplicate and stale notifications no-ops.
func (c *coordinator[K, H]) handleDown(identID string) {
	r := c.reg

	key, ok := c.byIdent[identID]
	if !ok {
		return
	}

	// Invalidate the mirror before the authoritative removal so the
	// fast path can never serve a handle the store has dropped.
	if r.table != nil {
		r.table.Delete(key)
	}
	delete(c.store, key)
	delete(c.byIdent, identID)

	r.set.metrics.RecordDown(context.Background(), r.cfg.Name)
	c.journal(key, journal.EventDown, identID)
	r.publish(Event[K]{Type: EventDown, Key: key, Identity: identID, Time: time.Now()})
	observability.LogWorkerDown(r.set.logger, keyString(key), identID)
}

// handleEvict removes an entry without waiting for worker death.
// Returns false when the key was already absent.
func (c *coordinator[K, H]) handleEvict(key K) bool {
	r := c.reg

	e, ok := c.store[key]
	if !ok {
		return false
	}

	if r.table != nil {
		r.table.Delete(key)
	}
	r.mon.Cancel(e.watch)
	delete(c.store, key)
	delete(c.byIdent, e.ident.ID())

	r.set.metrics.RecordEviction(context.Background(), r.cfg.Name)
	c.journal(key, journal.EventEvicted, e.ident.ID())
	r.publish(Event[K]{Type: EventEvicted, Key: key, Identity: e.ident.ID(), Time: time.Now()})
	observability.LogEviction(r.set.logger, keyString(key))
	return true
}

// journal appends a transition record. Failures are logged, never fatal.
func (c *coordinator[K, H]) journal(key K, event, identID string) {
	r := c.reg
	if r.jour == nil {
		return
	}
	err := r.jour.Append(journal.Record{
		Registry:  r.cfg.Name,
		Key:       keyString(key),
		Event:     event,
		Identity:  identID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		observability.LogJournalError(r.set.logger, keyString(key), err)
	}
}

// notifyDown is the monitor's delivery callback. It runs on the watch
// goroutine and hands the notification to the coordinator; if the
// registry is stopping the notification is dropped with it.
func (r *Registry[K, H]) notifyDown(identID string) {
	select {
	case r.reqs <- downCmd{identID: identID}:
	case <-r.closed:
	}
}

// keyString formats a key for logs, spans, and the journal.
func keyString(key any) string {
	return fmt.Sprintf("%v", key)
}
