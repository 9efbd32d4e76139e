//go:build !windows

package scandir

import (
	"io/fs"
	"strings"
)

// isHidden follows the unix convention: a leading dot hides the entry.
func isHidden(name string, _ fs.DirEntry) bool {
	return strings.HasPrefix(name, ".")
}
