package distroinfo

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LocalSource reads info files from a directory.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a LocalSource rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

// Retrieve reads dir/name.
func (s *LocalSource) Retrieve(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return nil, &NotFoundError{Path: path, Err: err}
	case err != nil:
		return nil, errors.Wrap(err, s.ID())
	}
	return data, nil
}

// Dir is the directory files are read from.
func (s *LocalSource) Dir() string {
	return s.dir
}

// ID returns the human-friendly version of this source.
func (s *LocalSource) ID() string {
	return fmt.Sprintf("local(%s)", s.dir)
}

// Stringer interface reuses ID
func (s *LocalSource) String() string {
	return s.ID()
}

func (*LocalSource) isSource() {}
