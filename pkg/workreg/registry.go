package workreg

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg/cache"
	"github.com/randalmurphal/workreg/pkg/workreg/journal"
	"github.com/randalmurphal/workreg/pkg/workreg/monitor"
	"github.com/randalmurphal/workreg/pkg/workreg/observability"
)

// Factory constructs a worker for an absent key. It returns the handle
// clients use to talk to the worker plus an identity built with
// NewIdentity. The registry invokes a factory at most once per
// successful creation, serialized with all other creations.
type Factory[H any] func() (H, Identity, error)

// Registry is a keyed worker registry. Create one with Start; the zero
// value is not usable.
//
// All methods are safe for concurrent use.
type Registry[K comparable, H any] struct {
	cfg Config
	set settings

	// table is the fast-read mirror; nil when disabled.
	table *cache.Table[K, H]
	mon   *monitor.Monitor

	jour        journal.Journal
	ownsJournal bool

	reqs      chan any
	closed    chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}

	evMu    sync.Mutex
	subs    map[int]chan Event[K]
	nextSub int
}

// Start brings up a registry as one unit: the coordinator goroutine, the
// fast-read cache when Config.FastReadCache is set, and the journal when
// Config.JournalPath (or WithJournal) is set. On error nothing is left
// running.
func Start[K comparable, H any](cfg Config, opts ...Option) (*Registry[K, H], error) {
	if err := cfg.Validate(); err != nil {
		return nil, &StartError{Component: "config", Err: err}
	}
	cfg = cfg.withDefaults()

	set := defaultSettings()
	set.defaultTimeout = cfg.DefaultTimeout
	for _, opt := range opts {
		opt(&set)
	}

	r := &Registry[K, H]{
		cfg:      cfg,
		set:      set,
		mon:      monitor.New(),
		jour:     set.journal,
		reqs:     make(chan any, set.requestBuffer),
		closed:   make(chan struct{}),
		loopDone: make(chan struct{}),
		subs:     make(map[int]chan Event[K]),
	}

	if r.jour == nil && cfg.JournalPath != "" {
		j, err := journal.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			return nil, &StartError{Component: "journal", Err: err}
		}
		r.jour = j
		r.ownsJournal = true
	}

	if cfg.FastReadCache {
		r.table = cache.New[K, H]()
	}

	go r.loop()

	observability.LogRegistryStart(set.logger, cfg.Name, cfg.FastReadCache)
	return r, nil
}

// Name returns the configured registry name.
func (r *Registry[K, H]) Name() string { return r.cfg.Name }

// LookupOrStart returns the handle for key, invoking factory to create
// the worker if no live one exists. Concurrent calls for the same absent
// key result in exactly one factory invocation; every caller receives
// the same handle.
//
// The wait is bounded by ctx (or Config.DefaultTimeout when ctx has no
// deadline). A timeout abandons only this caller's wait: a factory call
// already started always finishes, and its entry is served to the next
// lookup. Factory errors are returned wrapped in *FactoryError and leave
// the key absent and retryable.
func (r *Registry[K, H]) LookupOrStart(ctx context.Context, key K, factory Factory[H]) (H, error) {
	var zero H
	if factory == nil {
		return zero, ErrNilFactory
	}

	start := time.Now()
	ctx, span := r.set.spans.StartLookupSpan(ctx, r.cfg.Name, keyString(key))

	if r.table != nil {
		if h, ok := r.table.Get(key); ok {
			r.set.metrics.RecordLookup(ctx, r.cfg.Name, true, true, time.Since(start))
			r.set.spans.EndSpanWithError(span, nil)
			return h, nil
		}
	}

	ctx, cancel := r.applyDefaultTimeout(ctx)
	defer cancel()

	cmd := lookupCmd[K, H]{
		ctx:     ctx,
		key:     key,
		factory: factory,
		reply:   make(chan lookupReply[H], 1),
	}

	select {
	case r.reqs <- cmd:
	case <-ctx.Done():
		err := &TimeoutError{Op: "lookup", Key: keyString(key), Cause: ctx.Err()}
		r.set.spans.EndSpanWithError(span, err)
		return zero, err
	case <-r.closed:
		r.set.spans.EndSpanWithError(span, ErrRegistryClosed)
		return zero, ErrRegistryClosed
	}

	select {
	case rep := <-cmd.reply:
		r.set.metrics.RecordLookup(ctx, r.cfg.Name, rep.err == nil && !rep.created, false, time.Since(start))
		r.set.spans.EndSpanWithError(span, rep.err)
		return rep.handle, rep.err
	case <-ctx.Done():
		err := &TimeoutError{Op: "lookup", Key: keyString(key), Cause: ctx.Err()}
		r.set.spans.EndSpanWithError(span, err)
		return zero, err
	case <-r.closed:
		r.set.spans.EndSpanWithError(span, ErrRegistryClosed)
		return zero, ErrRegistryClosed
	}
}

// Lookup returns the handle for key without creating anything. The
// boolean reports whether a live entry exists. With the fast-read cache
// enabled, a hit is served without touching the coordinator.
func (r *Registry[K, H]) Lookup(ctx context.Context, key K) (H, bool, error) {
	var zero H

	if r.table != nil {
		if h, ok := r.table.Get(key); ok {
			return h, true, nil
		}
	}

	cmd := getCmd[K, H]{key: key, reply: make(chan getReply[H], 1)}
	if err := r.send(ctx, "lookup", key, cmd); err != nil {
		return zero, false, err
	}
	select {
	case rep := <-cmd.reply:
		return rep.handle, rep.ok, nil
	case <-ctx.Done():
		return zero, false, &TimeoutError{Op: "lookup", Key: keyString(key), Cause: ctx.Err()}
	case <-r.closed:
		return zero, false, ErrRegistryClosed
	}
}

// Evict removes the entry for key without waiting for worker death. The
// worker itself is not stopped; its later termination notification finds
// no entry and is ignored. Evicting an absent key is a no-op.
func (r *Registry[K, H]) Evict(ctx context.Context, key K) error {
	cmd := evictCmd[K]{key: key, reply: make(chan bool, 1)}
	if err := r.send(ctx, "evict", key, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.reply:
		return nil
	case <-ctx.Done():
		return &TimeoutError{Op: "evict", Key: keyString(key), Cause: ctx.Err()}
	case <-r.closed:
		return ErrRegistryClosed
	}
}

// Len returns the number of live entries.
func (r *Registry[K, H]) Len(ctx context.Context) (int, error) {
	cmd := lenCmd{reply: make(chan int, 1)}
	if err := r.send(ctx, "len", "", cmd); err != nil {
		return 0, err
	}
	select {
	case n := <-cmd.reply:
		return n, nil
	case <-ctx.Done():
		return 0, &TimeoutError{Op: "len", Key: "", Cause: ctx.Err()}
	case <-r.closed:
		return 0, ErrRegistryClosed
	}
}

// Keys returns a snapshot of the live keys. Order is not defined.
func (r *Registry[K, H]) Keys(ctx context.Context) ([]K, error) {
	cmd := keysCmd[K]{reply: make(chan []K, 1)}
	if err := r.send(ctx, "keys", "", cmd); err != nil {
		return nil, err
	}
	select {
	case keys := <-cmd.reply:
		return keys, nil
	case <-ctx.Done():
		return nil, &TimeoutError{Op: "keys", Key: "", Cause: ctx.Err()}
	case <-r.closed:
		return nil, ErrRegistryClosed
	}
}

// Stop shuts the registry down: the coordinator drains, all watches are
// cancelled, subscriptions close, and an owned journal is closed. Prior
// handles are orphaned, not stopped. Stop is idempotent.
func (r *Registry[K, H]) Stop(ctx context.Context) error {
	r.closeOnce.Do(func() {
		close(r.closed)
	})

	select {
	case <-r.loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mon.Close()
	r.closeSubs()
	if r.ownsJournal && r.jour != nil {
		return r.jour.Close()
	}
	return nil
}

// Journal returns the transition journal, or nil if none is configured.
func (r *Registry[K, H]) Journal() journal.Journal { return r.jour }

// send queues a command on the coordinator, honoring ctx and shutdown.
func (r *Registry[K, H]) send(ctx context.Context, op string, key any, cmd any) error {
	select {
	case r.reqs <- cmd:
		return nil
	case <-ctx.Done():
		return &TimeoutError{Op: op, Key: keyString(key), Cause: ctx.Err()}
	case <-r.closed:
		return ErrRegistryClosed
	}
}

// applyDefaultTimeout attaches the configured default timeout when the
// caller's context carries no deadline.
func (r *Registry[K, H]) applyDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && r.set.defaultTimeout > 0 {
		return context.WithTimeout(ctx, r.set.defaultTimeout)
	}
	return ctx, func() {}
}
