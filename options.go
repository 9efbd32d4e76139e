package scandir

// ReturnType selects how much metadata each reported entry carries.
type ReturnType uint8

const (
	// ReturnBasic reports path and kind only. No stat call is made beyond
	// the directory read itself.
	ReturnBasic ReturnType = iota
	// ReturnExtended attaches full stat metadata to every entry (size,
	// disk usage, timestamps, ownership, link count), one extra stat call
	// per entry. In counting mode it additionally aggregates sizes, usage
	// and hardlink counts.
	ReturnExtended
)

func (r ReturnType) String() string {
	if r == ReturnExtended {
		return "extended"
	}
	return "basic"
}

// Options configure a traversal. The zero value differs from the library
// defaults (notably Store); start from DefaultOptions and override fields
// as needed.
type Options struct {
	// Sorted yields each directory's children in lexicographic order.
	Sorted bool

	// SkipHidden prunes hidden directories and skips hidden files.
	// Hidden means dot-prefixed on unix; on windows the hidden file
	// attribute also counts.
	SkipHidden bool

	// MaxDepth bounds descent. The root's children are at depth 1; a
	// directory at MaxDepth is reported but not descended into.
	// 0 means unlimited.
	MaxDepth int

	// MaxFiles stops the traversal cleanly once this many non-directory
	// entries have been reported. Results gathered up to that point stay
	// valid. 0 means unlimited.
	MaxFiles int

	// DirInclude, DirExclude, FileInclude and FileExclude are glob
	// patterns (*, ?, [...]) matched against entry base names. Exclusion
	// wins over inclusion and an empty include list includes everything.
	// Directory patterns never apply to files and vice versa. A directory
	// rejected by its patterns is pruned: neither reported nor entered.
	DirInclude  []string
	DirExclude  []string
	FileInclude []string
	FileExclude []string

	// CaseSensitive controls glob matching. Matching is case-insensitive
	// by default.
	CaseSensitive bool

	// ReturnType selects basic or extended metadata per entry.
	ReturnType ReturnType

	// Store retains delivered results so repeated full drains return the
	// same set. When false every drain evicts what it returns, bounding
	// memory to the interval between drains.
	Store bool
}

// DefaultOptions returns the default configuration: unsorted, hidden
// entries included, unlimited depth and file count, no filters,
// case-insensitive matching, basic entries, results retained.
func DefaultOptions() *Options {
	return &Options{Store: true}
}
