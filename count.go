package scandir

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats is the aggregate of a counting run.
type Stats struct {
	Dirs     int64
	Files    int64
	Symlinks int64
	Other    int64

	// Filled only in extended mode.
	Size      int64 // logical bytes across all entries
	Usage     int64 // allocated bytes across all entries
	Hardlinks int64 // files with more than one link

	Errors   []ScanError
	Duration time.Duration
}

// Count is the aggregate-only entry point: same root validation, filters
// and traversal rules as Scandir, but entries are folded into running
// counters instead of being materialised. It has no incremental polling
// surface; Collect is the whole interface.
type Count struct {
	root     string
	filter   *pathFilter
	opts     Options
	extended bool
}

// NewCount prepares a counting run over root. opts may be nil for
// DefaultOptions; ReturnExtended selects the extended statistics (size,
// usage, hardlinks) at the cost of one stat call per entry.
func NewCount(root string, opts *Options) (*Count, error) {
	opts, filter, err := compileScan(root, opts)
	if err != nil {
		return nil, err
	}
	return &Count{
		root:     root,
		filter:   filter,
		opts:     *opts,
		extended: opts.ReturnType == ReturnExtended,
	}, nil
}

// Collect walks the tree on the calling goroutine and returns the
// aggregate. ctx aborts the walk early; the counts gathered so far come
// back with ctx's error.
func (c *Count) Collect(ctx context.Context) (Stats, error) {
	var cancel atomic.Bool
	agg := &statsSink{extended: c.extended}
	w := &walker{
		root:     c.root,
		filter:   c.filter,
		out:      agg,
		cancel:   &cancel,
		sorted:   c.opts.Sorted,
		maxDepth: c.opts.MaxDepth,
		maxFiles: c.opts.MaxFiles,
		extended: c.extended,
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel.Store(true)
		case <-done:
		}
	}()

	start := time.Now()
	w.walk()
	close(done)

	agg.stats.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return agg.stats, err
	}
	return agg.stats, nil
}

// statsSink folds walker output into counters. Only the walker goroutine
// touches it.
type statsSink struct {
	extended bool
	stats    Stats
}

func (a *statsSink) pushEntry(e Entry) {
	switch e.Kind {
	case KindDir:
		a.stats.Dirs++
	case KindFile:
		a.stats.Files++
	case KindSymlink:
		a.stats.Symlinks++
	default:
		a.stats.Other++
	}
	if a.extended && e.Meta != nil {
		a.stats.Size += e.Meta.Size
		a.stats.Usage += e.Meta.Usage
		if e.Kind == KindFile && e.Meta.Nlink > 1 {
			a.stats.Hardlinks++
		}
	}
}

func (a *statsSink) pushError(e ScanError) {
	a.stats.Errors = append(a.stats.Errors, e)
}
