//go:build windows

package scandir

import (
	"io/fs"
	"syscall"
	"time"
)

// metadataOf on Windows reads the Win32 attribute data. Disk usage falls
// back to the apparent size; inode, device, link count and ownership are
// not available through this interface. CTime maps to the creation time.
func metadataOf(info fs.FileInfo) *Metadata {
	m := &Metadata{
		Size:  info.Size(),
		Usage: info.Size(),
		MTime: info.ModTime(),
		Mode:  info.Mode(),
	}
	if st, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		m.ATime = time.Unix(0, st.LastAccessTime.Nanoseconds())
		m.CTime = time.Unix(0, st.CreationTime.Nanoseconds())
	}
	return m
}
