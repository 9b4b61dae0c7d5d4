//go:build !unix

package safewalk

import "os"

// fileIdentity is a placeholder on platforms without stable device/inode
// metadata. Deduplication is bypassed there: every file is admitted.
type fileIdentity struct {
	dev uint64
	ino uint64
}

func identityFromInfo(info os.FileInfo) (fileIdentity, bool) {
	return fileIdentity{}, false
}
