package distroinfo

import (
	"crypto/sha1"
	"encoding/hex"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	// defaultFilePerms are the permissions of newly cached files.
	defaultFilePerms = 0644

	// defaultDirPerms are the permissions of created cache directories.
	defaultDirPerms = 0755

	// DefaultCacheDir is where sources keep their cached files unless told
	// otherwise. A leading ~ is expanded to the user's home directory.
	DefaultCacheDir = "~/.distroinfo/cache"

	// DefaultRemoteCacheTTL is the cache TTL of sources declared in a
	// `remote-info` section that do not set `cache_ttl`.
	DefaultRemoteCacheTTL = time.Hour
)

var (
	// errMissingDest is the error returned with the destination is empty.
	errMissingDest = errors.New("missing destination")
)

// cacheDir expands dir, falling back to DefaultCacheDir when empty.
func cacheDir(dir string) (string, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", errors.Wrapf(err, "cache dir %q", dir)
	}
	return expanded, nil
}

// cacheID derives the short per-source directory name from the source
// location.
func cacheID(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:4]
}

// fileAge returns the time since path was last modified. The boolean is
// false when the file cannot be stat'ed.
func fileAge(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// ensureDir creates path when missing. An existing path that is not a
// directory is a NotADirectoryError.
func ensureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return &NotADirectoryError{Path: path}
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return err
	}
	return os.MkdirAll(path, defaultDirPerms)
}

// insideDir reports whether path lies below dir once both are cleaned.
func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// atomicWrite writes contents to a temporary file next to path and renames
// it into place, creating missing parent directories. An existing file
// keeps its permissions and ownership.
func atomicWrite(path string, contents []byte) error {
	if path == "" {
		return errMissingDest
	}

	parent := filepath.Dir(path)
	if err := ensureDir(parent); err != nil {
		return err
	}

	f, err := ioutil.TempFile(parent, ".cache")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(contents); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	perms := os.FileMode(defaultFilePerms)
	if currentInfo, err := os.Stat(path); err == nil {
		perms = currentInfo.Mode()
		preserveFileOwner(f.Name(), currentInfo)
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.Chmod(f.Name(), perms); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
