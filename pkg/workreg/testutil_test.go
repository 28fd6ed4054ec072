package workreg

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testWorker is a fake worker whose death the tests control.
type testWorker struct {
	name string
	done chan struct{}
	once sync.Once
}

func newTestWorker(name string) *testWorker {
	return &testWorker{name: name, done: make(chan struct{})}
}

// kill terminates the worker. Safe to call more than once.
func (w *testWorker) kill() {
	w.once.Do(func() { close(w.done) })
}

// spawn is a factory producing a fresh worker per invocation and
// counting invocations.
func spawn(name string, calls *atomic.Int64) Factory[*testWorker] {
	return func() (*testWorker, Identity, error) {
		if calls != nil {
			calls.Add(1)
		}
		w := newTestWorker(name)
		return w, NewIdentity(w.done), nil
	}
}

// startTestRegistry starts a registry and stops it on test cleanup.
func startTestRegistry(t *testing.T, cfg Config, opts ...Option) *Registry[string, *testWorker] {
	t.Helper()
	r, err := Start[string, *testWorker](cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return r
}

// waitEvent receives events until one of the wanted type arrives.
func waitEvent(t *testing.T, ch <-chan Event[string], typ EventType) Event[string] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event before deadline", typ)
		}
	}
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// entries returns the current entry count, failing the test on error.
func entries(t *testing.T, r *Registry[string, *testWorker]) int {
	t.Helper()
	n, err := r.Len(context.Background())
	require.NoError(t, err)
	return n
}
