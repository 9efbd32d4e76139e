package scandir

import (
	"fmt"
	"path"
	"strings"
)

// pathFilter holds the compiled include/exclude pattern sets of a scan.
// Patterns match entry base names only; directory patterns never see file
// names and vice versa. Exclusion wins over inclusion, and an empty
// include set means include-all.
type pathFilter struct {
	dirInclude  []string
	dirExclude  []string
	fileInclude []string
	fileExclude []string
	skipHidden  bool
	fold        bool // lowercase names before matching
}

func newPathFilter(o *Options) (*pathFilter, error) {
	f := &pathFilter{skipHidden: o.SkipHidden, fold: !o.CaseSensitive}

	var err error
	if f.dirInclude, err = compilePatterns(o.DirInclude, f.fold); err != nil {
		return nil, fmt.Errorf("dir include: %w", err)
	}
	if f.dirExclude, err = compilePatterns(o.DirExclude, f.fold); err != nil {
		return nil, fmt.Errorf("dir exclude: %w", err)
	}
	if f.fileInclude, err = compilePatterns(o.FileInclude, f.fold); err != nil {
		return nil, fmt.Errorf("file include: %w", err)
	}
	if f.fileExclude, err = compilePatterns(o.FileExclude, f.fold); err != nil {
		return nil, fmt.Errorf("file exclude: %w", err)
	}
	return f, nil
}

// compilePatterns validates every pattern up front so a malformed glob
// fails at construction instead of silently matching nothing mid-scan.
func compilePatterns(patterns []string, fold bool) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if fold {
			p = strings.ToLower(p)
		}
		if _, err := path.Match(p, "x"); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// keepDir reports whether a directory should be reported and descended
// into. A false return prunes the whole subtree.
func (f *pathFilter) keepDir(name string, hidden bool) bool {
	if f.skipHidden && hidden {
		return false
	}
	if f.fold {
		name = strings.ToLower(name)
	}
	if matchAny(f.dirExclude, name) {
		return false
	}
	return len(f.dirInclude) == 0 || matchAny(f.dirInclude, name)
}

// keepFile reports whether a non-directory entry should be reported.
func (f *pathFilter) keepFile(name string, hidden bool) bool {
	if f.skipHidden && hidden {
		return false
	}
	if f.fold {
		name = strings.ToLower(name)
	}
	if matchAny(f.fileExclude, name) {
		return false
	}
	return len(f.fileInclude) == 0 || matchAny(f.fileInclude, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// Pattern syntax was validated at compile time, so Match cannot
		// fail here.
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
