//go:build !windows

package scandir

import (
	"io/fs"
	"syscall"
)

// metadataOf extracts extended metadata from a stat result. The underlying
// syscall.Stat_t supplies inode, device, link count, ownership and the
// allocated block count (always 512-byte units, independent of the
// filesystem block size).
func metadataOf(info fs.FileInfo) *Metadata {
	m := &Metadata{
		Size:  info.Size(),
		MTime: info.ModTime(),
		Mode:  info.Mode(),
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		m.Usage = m.Size
		return m
	}
	m.Usage = int64(st.Blocks) * 512
	m.Ino = uint64(st.Ino)
	m.Dev = uint64(st.Dev)
	m.Nlink = uint64(st.Nlink)
	m.UID = st.Uid
	m.GID = st.Gid
	m.ATime, m.CTime = statTimes(st)
	return m
}
