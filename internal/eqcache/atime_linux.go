package eqcache

import (
	"io/fs"
	"syscall"
	"time"
)

// accessTime reads the file's atime from the underlying stat structure,
// falling back to mtime when the sys info is unavailable.
func accessTime(info fs.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	return info.ModTime()
}
