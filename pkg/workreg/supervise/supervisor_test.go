package supervise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/workreg/pkg/workreg"
)

// fastRestart keeps tests quick and deterministic.
var fastRestart = RestartConfig{
	MaxRestarts:    10,
	Window:         time.Minute,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0,
}

func stopSupervisor(t *testing.T, s *Supervisor) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
}

func waitRestarts(t *testing.T, w *Worker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Restarts() >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("worker never reached %d restarts (got %d)", n, w.Restarts())
}

func TestStart_NilWorker(t *testing.T) {
	s := New()
	stopSupervisor(t, s)

	_, err := s.Start("w", nil)
	assert.ErrorIs(t, err, ErrNilWorker)
}

func TestStart_IdentityValidImmediately(t *testing.T) {
	s := New(WithRestart(fastRestart))
	stopSupervisor(t, s)

	w, err := s.Start("w", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	require.NoError(t, err)

	ident := w.Identity()
	assert.NotEmpty(t, ident.ID())
	require.NotNil(t, ident.Done())
	select {
	case <-ident.Done():
		t.Fatal("running worker's done channel must be open")
	default:
	}
}

func TestTransient_NormalExitNotRestarted(t *testing.T) {
	s := New(WithPolicy(Transient), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, int64(1), runs.Load())
	assert.Equal(t, 0, w.Restarts())
	assert.NoError(t, w.Err())
}

func TestTransient_AbnormalExitRestarted(t *testing.T) {
	s := New(WithPolicy(Transient), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("crash")
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, int64(3), runs.Load())
	assert.Equal(t, 2, w.Restarts())
	assert.NoError(t, w.Err(), "final exit was clean")
}

func TestPermanent_RestartedAfterNormalExit(t *testing.T) {
	s := New(WithPolicy(Permanent), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	waitRestarts(t, w, 3)
	assert.GreaterOrEqual(t, runs.Load(), int64(3))

	w.Stop()
	require.NoError(t, w.Wait(context.Background()))
}

func TestTemporary_NeverRestarted(t *testing.T) {
	s := New(WithPolicy(Temporary), WithRestart(fastRestart))
	stopSupervisor(t, s)

	crash := errors.New("crash")
	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		runs.Add(1)
		return crash
	})
	require.NoError(t, err)

	require.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, int64(1), runs.Load())
	assert.Equal(t, 0, w.Restarts())
	assert.ErrorIs(t, w.Err(), crash)
}

func TestPanic_CapturedAndRestarted(t *testing.T) {
	s := New(WithPolicy(Transient), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("panicky", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		<-ctx.Done()
		return nil
	})
	require.NoError(t, err)

	waitRestarts(t, w, 1)

	// Err holds the panic from the crashed incarnation until the current
	// one exits.
	var perr *PanicError
	require.ErrorAs(t, w.Err(), &perr)
	assert.Equal(t, "panicky", perr.Worker)
	assert.Equal(t, "boom", perr.Value)
	assert.Contains(t, perr.Stack, "goroutine")
}

func TestRestart_IdentityChangesPerIncarnation(t *testing.T) {
	s := New(WithPolicy(Transient), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("crash")
		}
		<-ctx.Done()
		return nil
	})
	require.NoError(t, err)

	first := w.Identity()
	waitRestarts(t, w, 1)
	second := w.Identity()

	assert.NotEqual(t, first.ID(), second.ID())

	// The dead incarnation's done channel is closed; the live one's open.
	select {
	case <-first.Done():
	default:
		t.Fatal("crashed incarnation's done channel must be closed")
	}
	select {
	case <-second.Done():
		t.Fatal("live incarnation's done channel must be open")
	default:
	}
}

func TestRestart_BudgetExhausted(t *testing.T) {
	cfg := fastRestart
	cfg.MaxRestarts = 2
	s := New(WithPolicy(Permanent), WithRestart(cfg))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("crash")
	})
	require.NoError(t, err)

	require.NoError(t, w.Wait(context.Background()))
	// Initial run plus MaxRestarts restarts, then give up.
	assert.Equal(t, int64(3), runs.Load())
	assert.Equal(t, 2, w.Restarts())
}

func TestStop_SuppressesRestart(t *testing.T) {
	s := New(WithPolicy(Permanent), WithRestart(fastRestart))
	stopSupervisor(t, s)

	var runs atomic.Int64
	w, err := s.Start("w", func(ctx context.Context) error {
		runs.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	w.Stop()
	require.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, int64(1), runs.Load())
}

func TestSupervisor_StopAndClose(t *testing.T) {
	s := New(WithPolicy(Permanent), WithRestart(fastRestart))

	for i := 0; i < 3; i++ {
		_, err := s.Start("w", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Workers())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 0, s.Workers())

	_, err := s.Start("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSupervisorClosed)
}

// TestFactory_RegistryIntegration runs a supervisor-backed worker through
// the registry: crash removes the entry, and the next lookup starts a
// fresh supervised worker.
func TestFactory_RegistryIntegration(t *testing.T) {
	s := New(WithPolicy(Temporary), WithRestart(fastRestart))
	stopSupervisor(t, s)

	r, err := workreg.Start[string, *Worker](workreg.Config{Name: "supervised"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop(context.Background()) })

	events, cancel := r.Events()
	defer cancel()

	crash := make(chan struct{})
	var runs atomic.Int64
	body := func(ctx context.Context) error {
		runs.Add(1)
		select {
		case <-crash:
			return errors.New("crash")
		case <-ctx.Done():
			return nil
		}
	}

	w1, err := r.LookupOrStart(context.Background(), "job", s.Factory("job", body))
	require.NoError(t, err)
	assert.Equal(t, "job", w1.Name())

	close(crash)
	waitForEvent(t, events, workreg.EventDown)

	w2, err := r.LookupOrStart(context.Background(), "job", s.Factory("job", body))
	require.NoError(t, err)
	assert.NotSame(t, w1, w2)
	assert.Equal(t, int64(2), runs.Load())
}

func waitForEvent(t *testing.T, ch <-chan workreg.Event[string], typ workreg.EventType) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", typ)
			}
			if ev.Type == typ {
				return
			}
		case <-deadline:
			t.Fatalf("no %s event before deadline", typ)
		}
	}
}
