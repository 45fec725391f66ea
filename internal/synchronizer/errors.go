package synchronizer

import "errors"

var (
	// ErrConflict is returned by RemoteWordStore.Create when the record already exists
	ErrConflict = errors.New("synchronizer: record already exists")
	// ErrNotFound is returned by RemoteWordStore.Update for an unknown record
	ErrNotFound = errors.New("synchronizer: record not found")
	// ErrSyncUnavailable is the only sync failure surfaced to the learner.
	// Reconcile wraps it when the remote pull fails.
	ErrSyncUnavailable = errors.New("synchronizer: sync unavailable, try again later")

	ErrQueueFull    = errors.New("synchronizer: task queue full")
	ErrBridgeClosed = errors.New("synchronizer: bridge closed")
)
