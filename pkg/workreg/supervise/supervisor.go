// Package supervise provides a restart boundary for dynamically created
// workers.
//
// A Supervisor runs worker functions on their own goroutines and applies
// a restart policy when they exit. It is an independent fault domain from
// the registry coordinator: the two communicate only through worker
// identities and their Done channels. A restart produces a fresh identity
// that the registry does not know about — the registry removes the dead
// incarnation's entry when its termination notification arrives, and only
// a later LookupOrStart binds a key to a worker again.
package supervise

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/workreg/pkg/workreg"
)

// WorkerFunc is the body of a supervised worker. It should return when
// ctx is cancelled. A nil return is a normal exit; a non-nil return or a
// panic is an abnormal exit.
type WorkerFunc func(ctx context.Context) error

// Sentinel errors.
var (
	// ErrSupervisorClosed indicates Start was called after Stop.
	ErrSupervisorClosed = errors.New("supervisor closed")

	// ErrNilWorker indicates Start was called with a nil worker function.
	ErrNilWorker = errors.New("worker function cannot be nil")
)

// Supervisor starts and restarts workers according to a Policy.
type Supervisor struct {
	policy  Policy
	restart RestartConfig
	logger  *slog.Logger

	mu      sync.Mutex
	workers map[string]*Worker
	closed  bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPolicy sets the restart policy. Default: Transient.
func WithPolicy(p Policy) Option {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithRestart sets the restart budget and backoff. Default: DefaultRestart.
func WithRestart(c RestartConfig) Option {
	return func(s *Supervisor) {
		s.restart = c
	}
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		policy:  Transient,
		restart: DefaultRestart,
		workers: make(map[string]*Worker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches a supervised worker. The returned Worker's Identity is
// valid immediately and tracks the current incarnation.
func (s *Supervisor) Start(name string, run WorkerFunc) (*Worker, error) {
	if run == nil {
		return nil, ErrNilWorker
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSupervisorClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := &Worker{
		name:    name,
		uid:     uuid.NewString(),
		policy:  s.policy,
		restart: s.restart,
		logger:  s.logger,
		ctx:     ctx,
		cancel:  cancel,
		ident:   workreg.NewIdentity(done),
		exited:  make(chan struct{}),
	}
	s.workers[w.uid] = w
	s.mu.Unlock()

	go func() {
		defer s.remove(w.uid)
		w.supervise(run, done)
	}()

	return w, nil
}

// Factory adapts a supervised worker to the registry factory contract:
// the *Worker is the handle, the first incarnation's identity correlates
// termination. Pair Temporary policy with registry-driven re-creation;
// with Permanent or Transient the supervisor may restart an incarnation
// the registry has already forgotten.
func (s *Supervisor) Factory(name string, run WorkerFunc) func() (*Worker, workreg.Identity, error) {
	return func() (*Worker, workreg.Identity, error) {
		w, err := s.Start(name, run)
		if err != nil {
			return nil, workreg.Identity{}, err
		}
		return w, w.Identity(), nil
	}
}

// Workers returns the number of workers currently supervised.
func (s *Supervisor) Workers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// Stop stops all workers and waits for their supervision loops to end,
// or for ctx to expire. Start calls after Stop fail with
// ErrSupervisorClosed.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
	for _, w := range workers {
		if err := w.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// remove clears bookkeeping when a worker's supervision loop ends.
func (s *Supervisor) remove(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workers, uid)
}
