// Package scandir traverses directory trees on a background worker and
// hands results back through non-blocking drains.
//
// A Scandir runs one traversal at a time over a fixed root. The worker
// pushes entries and errors into an internal buffer; consumers poll it
// with only-new drains for incremental delivery, take everything at once
// with Collect, or range over Iter. Count is the aggregate-only companion
// that folds the same traversal into counters without materialising
// entries.
//
//	s, err := scandir.New(root, nil)
//	if err != nil { ... }
//	entries, errs, err := s.Collect(ctx)
package scandir

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle phase of a Scandir instance.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "finished"
	}
}

// pollInterval is how long drain-based waiters (Iter, the manager's
// consumers) sleep between checks on a running scan.
const pollInterval = 10 * time.Millisecond

// Scandir drives one traversal at a time, buffering results for
// incremental or bulk consumption. All methods are safe for concurrent
// use; the traversal itself runs on a single worker goroutine.
type Scandir struct {
	root   string
	opts   Options
	filter *pathFilter

	mu       sync.Mutex
	state    State
	done     chan struct{} // closed when the worker exits; nil before first start
	started  time.Time
	duration time.Duration // frozen at finish; zero before first start

	cancel atomic.Bool
	store  *resultStore
}

// New validates the root and prepares a Scandir. opts may be nil for
// DefaultOptions. The root must exist and be a directory (a symlinked
// root is followed); a missing root yields an error satisfying
// errors.Is(err, fs.ErrNotExist), a malformed glob pattern fails here
// rather than mid-scan.
func New(root string, opts *Options) (*Scandir, error) {
	opts, filter, err := compileScan(root, opts)
	if err != nil {
		return nil, err
	}
	return &Scandir{
		root:   root,
		opts:   *opts,
		filter: filter,
		store:  newResultStore(opts.Store),
	}, nil
}

// compileScan performs the construction-time validation shared by New and
// NewCount: root existence and type, then pattern compilation.
func compileScan(root string, opts *Options) (*Options, *pathFilter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("scandir: root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("scandir: root %q: %w", root, ErrNotDir)
	}
	filter, err := newPathFilter(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("scandir: %w", err)
	}
	return opts, filter, nil
}

// Root returns the root path the instance was built for.
func (s *Scandir) Root() string { return s.root }

// Start launches the traversal worker. Buffered results from a previous
// run are dropped. Returns ErrScanRunning while a worker is live.
func (s *Scandir) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning || s.state == StateStopping {
		return ErrScanRunning
	}

	s.store.reset()
	s.cancel.Store(false)
	s.started = time.Now()
	s.duration = 0
	s.state = StateRunning
	done := make(chan struct{})
	s.done = done

	w := &walker{
		root:     s.root,
		filter:   s.filter,
		out:      s.store,
		cancel:   &s.cancel,
		sorted:   s.opts.Sorted,
		maxDepth: s.opts.MaxDepth,
		maxFiles: s.opts.MaxFiles,
		extended: s.opts.ReturnType == ReturnExtended,
	}

	go func() {
		slog.Debug("scan started", "root", s.root)
		w.walk()

		s.mu.Lock()
		s.duration = time.Since(s.started)
		s.state = StateFinished
		d := s.duration
		s.mu.Unlock()
		close(done)

		slog.Debug("scan finished", "root", s.root, "duration", d)
	}()
	return nil
}

// Stop requests cancellation and returns without waiting; the worker
// unwinds at the next directory boundary. Use Join to observe its exit.
// Returns ErrNotRunning when no worker is live.
func (s *Scandir) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning && s.state != StateStopping {
		return ErrNotRunning
	}
	s.cancel.Store(true)
	s.state = StateStopping
	return nil
}

// Join blocks until the worker exits. It returns immediately once the
// scan has finished, ErrNeverStarted if Start was never called, or ctx's
// error if the wait is abandoned (the scan keeps running).
func (s *Scandir) Join(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return ErrNeverStarted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops all buffered results, errors and drain offsets. A finished
// instance returns to Idle with its duration zeroed; a running worker is
// unaffected beyond losing its buffered output.
func (s *Scandir) Clear() {
	s.mu.Lock()
	if s.state == StateFinished {
		s.state = StateIdle
		s.duration = 0
	}
	s.mu.Unlock()
	s.store.reset()
}

// Busy reports whether a worker is live (running or stopping).
func (s *Scandir) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning || s.state == StateStopping
}

// Finished reports whether the last scan ran to worker exit and has not
// been cleared since.
func (s *Scandir) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateFinished
}

// State returns the current lifecycle phase.
func (s *Scandir) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration reports elapsed wall time: zero before the first start, live
// while the scan runs, frozen once it finishes (until Clear or the next
// Start).
func (s *Scandir) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StateStopping {
		return time.Since(s.started)
	}
	return s.duration
}

// Results drains entries and errors together. onlyNew=true returns only
// items not delivered by a previous only-new drain and marks them
// consumed; false returns everything retained. With Store disabled every
// drain evicts what it returns.
func (s *Scandir) Results(onlyNew bool) ([]Entry, []ScanError) {
	return s.store.drainEntries(onlyNew), s.store.drainErrors(onlyNew)
}

// Entries drains buffered entries only; errors stay untouched.
func (s *Scandir) Entries(onlyNew bool) []Entry {
	return s.store.drainEntries(onlyNew)
}

// Errors drains buffered traversal errors only.
func (s *Scandir) Errors(onlyNew bool) []ScanError {
	return s.store.drainErrors(onlyNew)
}

// HasResults reports whether a Results drain with the same flag would
// return anything. Nothing is consumed.
func (s *Scandir) HasResults(onlyNew bool) bool {
	return s.store.entriesCount(onlyNew)+s.store.errorsCount(onlyNew) > 0
}

// ResultsCnt counts what a Results drain with the same flag would return.
func (s *Scandir) ResultsCnt(onlyNew bool) int {
	return s.store.entriesCount(onlyNew) + s.store.errorsCount(onlyNew)
}

// HasEntries reports whether an Entries drain would return anything.
func (s *Scandir) HasEntries(onlyNew bool) bool {
	return s.store.entriesCount(onlyNew) > 0
}

// EntriesCnt counts what an Entries drain would return.
func (s *Scandir) EntriesCnt(onlyNew bool) int {
	return s.store.entriesCount(onlyNew)
}

// HasErrors reports whether an Errors drain would return anything.
func (s *Scandir) HasErrors(onlyNew bool) bool {
	return s.store.errorsCount(onlyNew) > 0
}

// ErrorsCnt counts what an Errors drain would return.
func (s *Scandir) ErrorsCnt(onlyNew bool) int {
	return s.store.errorsCount(onlyNew)
}

// AsMap drains like Results and returns the items keyed by path. An entry
// whose metadata stat failed appears only under its error, so the two key
// sets never collide.
func (s *Scandir) AsMap(onlyNew bool) map[string]Result {
	entries, errs := s.Results(onlyNew)
	m := make(map[string]Result, len(entries)+len(errs))
	for i := range entries {
		m[entries[i].Path] = Result{Entry: &entries[i]}
	}
	for i := range errs {
		m[errs[i].Path] = Result{Err: &errs[i]}
	}
	return m
}

// Collect runs the scan to completion and returns everything gathered:
// Start if idle (a scan already in flight is joined instead), wait for
// the worker, then a full drain. ctx cancels the scan early; whatever was
// collected is returned alongside ctx's error.
func (s *Scandir) Collect(ctx context.Context) ([]Entry, []ScanError, error) {
	if err := s.Start(); err != nil && !errors.Is(err, ErrScanRunning) {
		return nil, nil, err
	}
	if err := s.Join(ctx); err != nil {
		s.Stop()
		s.Join(context.Background())
		entries, errs := s.Results(false)
		return entries, errs, err
	}
	entries, errs := s.Results(false)
	return entries, errs, nil
}

// Iter restarts the scan and yields results in arrival order as the
// worker produces them, erroring with ErrScanRunning if one is already in
// flight. Breaking out of the loop (or ctx expiry) cancels the scan.
func (s *Scandir) Iter(ctx context.Context) (iter.Seq[Result], error) {
	if err := s.Start(); err != nil {
		return nil, err
	}

	seq := func(yield func(Result) bool) {
		defer func() {
			if s.Stop() == nil {
				s.Join(context.Background())
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// Observe liveness before draining: once the worker has
			// exited, the drain below is guaranteed complete.
			running := s.Busy()
			entries, errs := s.Results(true)
			for i := range entries {
				if !yield(Result{Entry: &entries[i]}) {
					return
				}
			}
			for i := range errs {
				if !yield(Result{Err: &errs[i]}) {
					return
				}
			}
			if !running {
				return
			}
			time.Sleep(pollInterval)
		}
	}
	return seq, nil
}

// With runs fn between Start and Stop+Join, the scoped form of a scan.
// The worker is always shut down before With returns, whatever fn does.
// fn returning ErrStop (or wrapping it) counts as a deliberate early stop
// and is not reported as a failure.
func (s *Scandir) With(fn func(*Scandir) error) error {
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		if s.Stop() == nil {
			s.Join(context.Background())
		}
	}()

	if err := fn(s); err != nil && !errors.Is(err, ErrStop) {
		return err
	}
	return nil
}
