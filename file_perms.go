//go:build !windows

package distroinfo

import (
	"os"
	"syscall"
)

// preserveFileOwner gives path the owner and group recorded in fileInfo.
// A cache write stays valid when it fails, so atomicWrite ignores the error.
func preserveFileOwner(path string, fileInfo os.FileInfo) error {
	stat, ok := fileInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	if int(stat.Uid) == os.Getuid() && int(stat.Gid) == os.Getgid() {
		return nil
	}
	return os.Chown(path, int(stat.Uid), int(stat.Gid))
}
