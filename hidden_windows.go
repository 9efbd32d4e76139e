//go:build windows

package scandir

import (
	"io/fs"
	"strings"
	"syscall"
)

// isHidden honors both the dot-prefix convention and the Windows hidden
// attribute. The attribute check costs a stat call, so the cheap name
// check runs first.
func isHidden(name string, de fs.DirEntry) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	info, err := de.Info()
	if err != nil {
		return false
	}
	st, ok := info.Sys().(*syscall.Win32FileAttributeData)
	return ok && st.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0
}
