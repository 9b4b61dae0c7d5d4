//go:build unix

package safewalk

import (
	"os"
	"syscall"
)

// fileIdentity is the (device, inode) pair that identifies a file's on-disk
// data across all hardlinks to it within one filesystem.
type fileIdentity struct {
	dev uint64
	ino uint64
}

// identityFromInfo extracts the identity from an lstat result. The second
// return value is false when the platform does not expose Stat_t.
func identityFromInfo(info os.FileInfo) (fileIdentity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return fileIdentity{}, false
	}
	return fileIdentity{
		dev: uint64(st.Dev),
		ino: uint64(st.Ino),
	}, true
}
