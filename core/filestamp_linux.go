//go:build linux

package core

import (
	"os"
	"syscall"
)

// fileStamp returns the inode number and status change time of a file.
func fileStamp(info os.FileInfo) (inode uint64, changeTime int64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return uint64(st.Ino), st.Ctim.Nano()
}
