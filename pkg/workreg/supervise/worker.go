package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg"
)

// PanicError captures panic information from a worker.
// It includes the stack trace for debugging.
type PanicError struct {
	// Worker is the name of the worker that panicked.
	Worker string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %s panicked: %v", e.Worker, e.Value)
}

// Worker is a supervised worker. It is the handle a registry carries for
// supervisor-backed entries.
type Worker struct {
	name    string
	uid     string
	policy  Policy
	restart RestartConfig
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	ident    workreg.Identity
	stopped  bool
	restarts int
	lastErr  error

	// exited closes when the supervision loop ends for good.
	exited chan struct{}
}

// Name returns the name given to Start.
func (w *Worker) Name() string { return w.name }

// Identity returns the identity of the current incarnation. After a
// restart it differs from previously returned identities.
func (w *Worker) Identity() workreg.Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ident
}

// Restarts returns how many times the worker has been restarted.
func (w *Worker) Restarts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restarts
}

// Err returns the error from the most recent exit, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Stop cancels the worker and suppresses any further restart.
// It does not wait; use Wait.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
}

// Wait blocks until the supervision loop has ended or ctx expires.
func (w *Worker) Wait(ctx context.Context) error {
	select {
	case <-w.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// supervise runs incarnations of the worker until the policy says stop.
// done is the first incarnation's done channel, created by Start so the
// initial Identity is valid before the loop begins.
func (w *Worker) supervise(run WorkerFunc, done chan struct{}) {
	defer close(w.exited)
	defer w.cancel()

	backoff := w.restart.InitialBackoff
	var restartTimes []time.Time

	for {
		err := runWorker(w.ctx, w.name, run)
		close(done)

		w.mu.Lock()
		w.lastErr = err
		stopped := w.stopped
		w.mu.Unlock()

		if stopped || w.ctx.Err() != nil {
			return
		}

		switch w.policy {
		case Permanent:
			// always restart
		case Transient:
			if err == nil {
				return
			}
		default:
			return
		}

		now := time.Now()
		if w.restart.Window > 0 {
			cutoff := now.Add(-w.restart.Window)
			kept := restartTimes[:0]
			for _, ts := range restartTimes {
				if ts.After(cutoff) {
					kept = append(kept, ts)
				}
			}
			restartTimes = kept
		}
		if w.restart.MaxRestarts > 0 && len(restartTimes) >= w.restart.MaxRestarts {
			if w.logger != nil {
				w.logger.Error("restart budget exhausted, giving up",
					slog.String("worker", w.name),
					slog.Int("restarts", len(restartTimes)),
				)
			}
			return
		}
		restartTimes = append(restartTimes, now)

		select {
		case <-time.After(w.restart.delay(backoff)):
		case <-w.ctx.Done():
			return
		}
		backoff = w.restart.next(backoff)

		done = make(chan struct{})
		w.mu.Lock()
		w.ident = workreg.NewIdentity(done)
		w.restarts++
		w.mu.Unlock()

		if w.logger != nil {
			w.logger.Info("restarting worker",
				slog.String("worker", w.name),
				slog.String("identity", w.Identity().ID()),
			)
		}
	}
}

// runWorker invokes run, converting panics into PanicError.
func runWorker(ctx context.Context, name string, run WorkerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Worker: name,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()
	return run(ctx)
}
