package scandir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// writeTree creates files (and any missing parents) under root. Paths use
// forward slashes; a trailing slash creates a bare directory. File content
// is the path itself so sizes differ per file.
func writeTree(tb testing.TB, root string, paths ...string) {
	tb.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if strings.HasSuffix(p, "/") {
			if err := os.MkdirAll(full, 0o755); err != nil {
				tb.Fatalf("mkdir %q: %v", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			tb.Fatalf("mkdir parent of %q: %v", p, err)
		}
		if err := os.WriteFile(full, []byte(p), 0o644); err != nil {
			tb.Fatalf("write %q: %v", p, err)
		}
	}
}

// createSyntheticTree builds numFiles small files spread over dir000..dirNNN
// subdirectories, 50 files each. Returns numFiles.
func createSyntheticTree(tb testing.TB, root string, numFiles int) int {
	tb.Helper()
	for i := 0; i < numFiles; i++ {
		subdir := filepath.Join(root, fmt.Sprintf("dir%03d", i/50))
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			tb.Fatalf("mkdir %q: %v", subdir, err)
		}
		p := filepath.Join(subdir, fmt.Sprintf("file%04d.txt", i))
		if err := os.WriteFile(p, []byte("synthetic"), 0o644); err != nil {
			tb.Fatalf("write %q: %v", p, err)
		}
	}
	return numFiles
}

// mustScandir builds a Scandir, failing the test on construction errors.
func mustScandir(tb testing.TB, root string, opts *Options) *Scandir {
	tb.Helper()
	s, err := New(root, opts)
	if err != nil {
		tb.Fatalf("New(%q): %v", root, err)
	}
	return s
}

// entryPaths returns the slash-normalised entry paths, sorted.
func entryPaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = filepath.ToSlash(entries[i].Path)
	}
	sort.Strings(out)
	return out
}

// pathsOfKind returns the sorted slash paths of entries with the given kind.
func pathsOfKind(entries []Entry, kind Kind) []string {
	var out []string
	for i := range entries {
		if entries[i].Kind == kind {
			out = append(out, filepath.ToSlash(entries[i].Path))
		}
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
