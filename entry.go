package scandir

import (
	"io/fs"
	"time"
)

// Kind classifies a filesystem entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther // sockets, FIFOs, devices
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// kindOf maps a directory-entry mode to a Kind. The symlink bit is checked
// first so a link to a directory is never classified as one.
func kindOf(mode fs.FileMode) Kind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDir
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// Entry is a single filesystem object reported by a scan. Path is relative
// to the scan root. Meta is non-nil only when the scan ran with
// ReturnExtended.
type Entry struct {
	Path string
	Kind Kind
	Meta *Metadata
}

// Metadata holds the stat fields collected in extended mode. On platforms
// without a given field it is left zero (see the stat_* files).
type Metadata struct {
	Size  int64 // logical size in bytes
	Usage int64 // allocated size on disk in bytes
	MTime time.Time
	ATime time.Time
	CTime time.Time
	Mode  fs.FileMode
	Ino   uint64
	Dev   uint64
	Nlink uint64
	UID   uint32
	GID   uint32
}

// ScanError is a traversal failure tied to one path. Errors are results,
// not aborts: the scan continues past them.
type ScanError struct {
	Path    string // relative to the scan root; "." for the root itself
	Message string
}

func (e ScanError) Error() string {
	return e.Path + ": " + e.Message
}

// Result is the sum of the two things a scan yields. Exactly one field is
// non-nil.
type Result struct {
	Entry *Entry
	Err   *ScanError
}
