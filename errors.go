package scandir

import "errors"

var (
	// ErrScanRunning is returned by Start (and Iter) while a previous
	// traversal is still in flight.
	ErrScanRunning = errors.New("scan already running")

	// ErrNotRunning is returned by Stop when there is no live worker to
	// cancel.
	ErrNotRunning = errors.New("scan not running")

	// ErrNeverStarted is returned by Join when Start has never been called
	// on this instance.
	ErrNeverStarted = errors.New("scan never started")

	// ErrNotDir is returned at construction when the root path exists but
	// is not a directory.
	ErrNotDir = errors.New("root path is not a directory")

	// ErrStop can be returned by the callback passed to With to end the
	// scan early without reporting a failure. With swallows it.
	ErrStop = errors.New("scan stopped")
)
