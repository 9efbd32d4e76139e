package scandir

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
)

// sink receives everything a traversal produces. resultStore implements it
// for full scans; Count folds entries into counters instead of keeping
// them.
type sink interface {
	pushEntry(Entry)
	pushError(ScanError)
}

// walker performs the traversal of one scan. Exactly one goroutine runs
// walk; the cancel flag is the only field written from outside.
type walker struct {
	root     string
	filter   *pathFilter
	out      sink
	cancel   *atomic.Bool
	sorted   bool
	maxDepth int
	maxFiles int
	extended bool

	files int // non-directory entries reported so far
}

// walk traverses depth-first from the root. It never returns an error:
// every failure below the root becomes a ScanError in the stream. The
// root itself is not reported; its children sit at depth 1.
func (w *walker) walk() {
	w.walkDir(w.root, ".", 1)
}

// walkDir lists one directory and reports its children, recursing into
// kept subdirectories. depth is the depth of the children being listed.
func (w *walker) walkDir(dir, rel string, depth int) {
	if w.stopped() {
		return
	}

	children, err := readDir(dir, w.sorted)
	if err != nil {
		w.out.pushError(ScanError{Path: rel, Message: err.Error()})
		return
	}

	for _, child := range children {
		if w.stopped() {
			return
		}

		name := child.Name()
		hidden := w.filter.skipHidden && isHidden(name, child)
		childRel := filepath.Join(rel, name)

		kind := kindOf(child.Type())
		if kind == KindDir {
			// A rejected directory is pruned wholesale.
			if !w.filter.keepDir(name, hidden) {
				continue
			}
			w.report(childRel, child, KindDir)
			if w.maxDepth == 0 || depth < w.maxDepth {
				w.walkDir(filepath.Join(dir, name), childRel, depth+1)
			}
			continue
		}

		if !w.filter.keepFile(name, hidden) {
			continue
		}
		// Symlinks are reported as themselves and never followed.
		if w.report(childRel, child, kind) {
			w.files++
		}
	}
}

// report pushes one entry, with metadata attached in extended mode. It
// returns false when the metadata stat failed; the failure is reported as
// a ScanError in place of the entry.
func (w *walker) report(rel string, child fs.DirEntry, kind Kind) bool {
	e := Entry{Path: rel, Kind: kind}
	if w.extended {
		info, err := child.Info()
		if err != nil {
			w.out.pushError(ScanError{Path: rel, Message: err.Error()})
			return false
		}
		e.Meta = metadataOf(info)
	}
	w.out.pushEntry(e)
	return true
}

// stopped reports whether the traversal should unwind: either Stop was
// requested or the file limit has been reached. Checked once per directory
// listing and once per child, so cancellation latency is bounded by a
// single ReadDir.
func (w *walker) stopped() bool {
	if w.cancel.Load() {
		return true
	}
	return w.maxFiles > 0 && w.files >= w.maxFiles
}

// readDir returns the children of dir. Unlike os.ReadDir it leaves the
// listing in directory order unless the caller asked for sorting, saving
// the sort on large directories.
func readDir(dir string, sorted bool) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	children, err := f.ReadDir(-1)
	f.Close()
	if err != nil {
		return nil, err
	}
	if sorted {
		sort.Slice(children, func(i, j int) bool {
			return children[i].Name() < children[j].Name()
		})
	}
	return children, nil
}
