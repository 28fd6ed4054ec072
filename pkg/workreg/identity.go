package workreg

import "github.com/google/uuid"

// Identity identifies a live worker for liveness tracking. It is distinct
// from the handle: the registry uses it only to correlate termination
// notifications back to entries, never to communicate with the worker.
//
// The zero Identity is invalid; factories must build identities with
// NewIdentity.
type Identity struct {
	id   string
	done <-chan struct{}
}

// NewIdentity creates an identity whose worker is considered terminated
// once done is closed.
func NewIdentity(done <-chan struct{}) Identity {
	return Identity{id: uuid.NewString(), done: done}
}

// ID returns the unique identity token.
func (i Identity) ID() string { return i.id }

// Done returns the channel closed on worker termination.
func (i Identity) Done() <-chan struct{} { return i.done }

// valid reports whether the identity can be watched.
func (i Identity) valid() bool {
	return i.id != "" && i.done != nil
}
