package queue

import "errors"

var (
	// ErrDrainInProgress is returned when Drain is called while another drain
	// is still replaying entries.
	ErrDrainInProgress = errors.New("offline queue drain already in progress")
	// ErrNotFound is returned when an action id is not in the queue.
	ErrNotFound = errors.New("queued action not found")
	// ErrInFlight is returned when an operation would touch the entry that is
	// currently being replayed.
	ErrInFlight = errors.New("queued action is in flight")
	// ErrNotLoaded is returned when the queue is used before Load.
	ErrNotLoaded = errors.New("offline queue not loaded")
)
