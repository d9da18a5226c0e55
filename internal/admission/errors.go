package admission

import "errors"

var (
	// ErrRejected wraps every error returned for an arrival that was turned away
	// before it took a slot.
	ErrRejected = errors.New("request rejected")

	// ErrEvicted wraps every error returned for an entry that left the queue
	// without being served.
	ErrEvicted = errors.New("request evicted from queue")
)

// Rejection causes.
var (
	ErrCapacityExceeded = errors.New("admission queue at capacity")
	ErrClosed           = errors.New("admission controller is shut down")
)

// Eviction causes.
var (
	ErrTTLExpired = errors.New("request waited longer than the queue TTL")
	ErrCancelled  = errors.New("request cancelled while queued")
)

// Invariant violations. Seeing one of these means the controller released a
// slot it did not own.
var (
	ErrEmptyQueue    = errors.New("dequeue from empty admission queue")
	ErrEntryNotFound = errors.New("entry is not in the admission queue")
)

// ErrNotCancellable is returned when cancelling a job that already left the
// queued state.
var ErrNotCancellable = errors.New("job is no longer queued")
