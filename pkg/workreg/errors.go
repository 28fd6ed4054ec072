package workreg

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrRegistryClosed indicates an operation on a stopped registry.
	ErrRegistryClosed = errors.New("registry closed")

	// ErrTimeout indicates the coordinator did not respond within the
	// caller's context deadline.
	ErrTimeout = errors.New("registry lookup timed out")

	// ErrNilFactory indicates LookupOrStart was called with a nil factory.
	ErrNilFactory = errors.New("factory cannot be nil")

	// ErrInvalidIdentity indicates a factory returned an identity without
	// an ID or done channel. Build identities with NewIdentity.
	ErrInvalidIdentity = errors.New("factory returned invalid identity")
)

// FactoryError wraps a failed factory invocation. No entry is created;
// the key stays absent and the next lookup retries creation.
type FactoryError struct {
	// Key is the lookup key, formatted with %v.
	Key string
	// Err is the error the factory returned.
	Err error
}

// Error implements the error interface.
func (e *FactoryError) Error() string {
	return fmt.Sprintf("factory for key %s: %v", e.Key, e.Err)
}

// Unwrap returns the factory's error for errors.Is/As support.
func (e *FactoryError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that a caller gave up waiting on the coordinator.
// A factory call already in flight still finishes and commits its entry.
type TimeoutError struct {
	// Op is the operation that timed out (e.g., "lookup", "evict").
	Op string
	// Key is the lookup key, formatted with %v.
	Key string
	// Cause is the context error (context.DeadlineExceeded or Canceled).
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s for key %s: %v", e.Op, e.Key, e.Cause)
}

// Unwrap returns ErrTimeout for errors.Is support.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// StartError wraps a registry startup failure.
type StartError struct {
	// Component is the part that failed ("config", "journal").
	Component string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StartError) Unwrap() error {
	return e.Err
}
