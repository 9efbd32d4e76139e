package scandir

import (
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
)

// runWalk drives a walker synchronously and returns everything it
// produced.
func runWalk(tb testing.TB, root string, opts Options) ([]Entry, []ScanError) {
	tb.Helper()
	f, err := newPathFilter(&opts)
	if err != nil {
		tb.Fatalf("newPathFilter: %v", err)
	}
	store := newResultStore(true)
	var cancel atomic.Bool
	w := &walker{
		root:     root,
		filter:   f,
		out:      store,
		cancel:   &cancel,
		sorted:   opts.Sorted,
		maxDepth: opts.MaxDepth,
		maxFiles: opts.MaxFiles,
		extended: opts.ReturnType == ReturnExtended,
	}
	w.walk()
	return store.drainEntries(false), store.drainErrors(false)
}

func TestWalkReportsAllKinds(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "top.txt", "a/x.txt", "a/b/y.txt", "empty/")

	entries, errs := runWalk(t, root, Options{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	wantFiles := []string{"a/b/y.txt", "a/x.txt", "top.txt"}
	wantDirs := []string{"a", "a/b", "empty"}
	if got := pathsOfKind(entries, KindFile); !equalStrings(got, wantFiles) {
		t.Errorf("files: got %v, want %v", got, wantFiles)
	}
	if got := pathsOfKind(entries, KindDir); !equalStrings(got, wantDirs) {
		t.Errorf("dirs: got %v, want %v", got, wantDirs)
	}

	// The root itself must not appear.
	for _, e := range entries {
		if e.Path == "." || e.Path == "" {
			t.Errorf("root reported as entry: %+v", e)
		}
	}
}

func TestWalkSortedPreorder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b/z.txt", "b/a.txt", "c.txt", "a.txt")

	entries, _ := runWalk(t, root, Options{Sorted: true})

	want := []string{"a.txt", "b", "b/a.txt", "b/z.txt", "c.txt"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if filepath.ToSlash(e.Path) != want[i] {
			t.Errorf("position %d: got %q, want %q", i, e.Path, want[i])
		}
	}
}

func TestWalkSkipHidden(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "visible.txt", ".hidden.txt", ".secret/inner.txt", "dir/.also.txt", "dir/ok.txt")

	entries, _ := runWalk(t, root, Options{SkipHidden: true})

	want := []string{"dir", "dir/ok.txt", "visible.txt"}
	if got := entryPaths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "top.txt", "a/x.txt", "a/b/y.txt")

	tests := []struct {
		depth int
		want  []string
	}{
		// A directory at the limit is reported but not entered.
		{1, []string{"a", "top.txt"}},
		{2, []string{"a", "a/b", "a/x.txt", "top.txt"}},
		// Zero means unlimited.
		{0, []string{"a", "a/b", "a/b/y.txt", "a/x.txt", "top.txt"}},
	}
	for _, tt := range tests {
		entries, _ := runWalk(t, root, Options{MaxDepth: tt.depth})
		if got := entryPaths(entries); !equalStrings(got, tt.want) {
			t.Errorf("MaxDepth=%d: got %v, want %v", tt.depth, got, tt.want)
		}
	}
}

func TestWalkMaxFilesStopsCleanly(t *testing.T) {
	root := t.TempDir()
	createSyntheticTree(t, root, 100)

	entries, errs := runWalk(t, root, Options{MaxFiles: 10})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := len(pathsOfKind(entries, KindFile)); got != 10 {
		t.Errorf("got %d files, want exactly 10", got)
	}
}

func TestWalkDirExcludePrunes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep/a.txt", "skip/b.txt", "skip/sub/c.txt")

	entries, _ := runWalk(t, root, Options{DirExclude: []string{"skip"}})

	want := []string{"keep", "keep/a.txt"}
	if got := entryPaths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWalkDirIncludeDoesNotAffectFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "src/a.go", "docs/b.md", "top.go")

	entries, _ := runWalk(t, root, Options{DirInclude: []string{"src"}})

	// Files at levels above the pruned dirs are untouched by the dir
	// patterns; docs and its contents are pruned.
	want := []string{"src", "src/a.go", "top.go"}
	if got := entryPaths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWalkFilePatternPrecedence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep.txt", "drop.txt", "photo.jpg")

	entries, _ := runWalk(t, root, Options{
		FileInclude: []string{"*.txt"},
		FileExclude: []string{"drop*"},
	})

	want := []string{"keep.txt"}
	if got := pathsOfKind(entries, KindFile); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWalkHiddenAndIncludeTogether(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/x.txt", "a/.hidden", "b.log")

	entries, _ := runWalk(t, root, Options{
		SkipHidden:  true,
		FileInclude: []string{"*.txt"},
	})

	// Directories are unaffected by file patterns; b.log misses the
	// include set and .hidden is skipped.
	want := []string{"a", "a/x.txt"}
	if got := entryPaths(entries); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWalkSymlinkReportedNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, "real/inner.txt")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	entries, errs := runWalk(t, root, Options{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if got := pathsOfKind(entries, KindSymlink); !equalStrings(got, []string{"link"}) {
		t.Fatalf("symlinks: got %v, want [link]", got)
	}
	// Following the link would duplicate inner.txt under link/.
	for _, e := range entries {
		if filepath.ToSlash(e.Path) == "link/inner.txt" {
			t.Error("symlinked directory was descended into")
		}
	}
}

func TestWalkUnreadableSubdirReportsErrorAndContinues(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced the same way on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("running as root; permission checks are bypassed")
	}
	root := t.TempDir()
	writeTree(t, root, "locked/secret.txt", "open/ok.txt")
	if err := os.Chmod(filepath.Join(root, "locked"), 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(filepath.Join(root, "locked"), 0o755) })

	entries, errs := runWalk(t, root, Options{})

	if len(errs) != 1 || filepath.ToSlash(errs[0].Path) != "locked" {
		t.Fatalf("errors: got %v, want one error for locked", errs)
	}
	// The failure is contained: the rest of the tree is still walked.
	want := []string{"locked", "open", "open/ok.txt"}
	if got := entryPaths(entries); !equalStrings(got, want) {
		t.Errorf("entries: got %v, want %v", got, want)
	}
}

func TestWalkExtendedMetadata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "data.bin")

	entries, _ := runWalk(t, root, Options{ReturnType: ReturnExtended})
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	m := entries[0].Meta
	if m == nil {
		t.Fatal("extended scan produced entry without metadata")
	}
	if want := int64(len("data.bin")); m.Size != want {
		t.Errorf("Size = %d, want %d", m.Size, want)
	}
	if m.MTime.IsZero() {
		t.Error("MTime is zero")
	}
	if m.Mode == 0 {
		t.Error("Mode is zero")
	}
}

func TestWalkBasicHasNoMetadata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "data.bin")

	entries, _ := runWalk(t, root, Options{})
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Meta != nil {
		t.Errorf("basic scan attached metadata: %+v", entries[0].Meta)
	}
}

func TestWalkCancelledBeforeStartProducesNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "b/c.txt")

	f, err := newPathFilter(&Options{})
	if err != nil {
		t.Fatal(err)
	}
	store := newResultStore(true)
	var cancel atomic.Bool
	cancel.Store(true)

	w := &walker{root: root, filter: f, out: store, cancel: &cancel}
	w.walk()

	if n := store.entriesCount(false); n != 0 {
		t.Errorf("cancelled walk produced %d entries", n)
	}
}
