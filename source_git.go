package distroinfo

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// GitSource reads info files from a local clone of a git repository. The
// clone is synced once, on the first Retrieve.
type GitSource struct {
	url    string
	repo   *RepoManager
	synced bool
}

// GitSourceInput is the input structure for NewGitSource.
type GitSourceInput struct {
	// URL of the repository.
	URL string
	// CacheTTL is how long a fetched clone stays fresh.
	CacheTTL time.Duration
	// CacheDir holds the clone, DefaultCacheDir when empty.
	CacheDir string

	Logger       hclog.Logger
	EventHandler events.EventHandler
}

// NewGitSource creates a GitSource. The clone lives in
// CacheDir/<repo name>-<id>, where id is derived from the URL.
func NewGitSource(i GitSourceInput) (*GitSource, error) {
	dir, err := cacheDir(i.CacheDir)
	if err != nil {
		return nil, err
	}
	logger := i.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	repo, err := NewRepoManager(RepoManagerInput{
		URL:          i.URL,
		BaseDir:      dir,
		DirPostfix:   "-" + cacheID(i.URL),
		TTL:          i.CacheTTL,
		Logger:       logger.Named("git"),
		EventHandler: i.EventHandler,
	})
	if err != nil {
		return nil, err
	}
	return &GitSource{url: i.URL, repo: repo}, nil
}

// Retrieve syncs the clone if it was not synced yet and reads name from
// its working tree.
func (s *GitSource) Retrieve(ctx context.Context, name string) ([]byte, error) {
	if !s.synced {
		if err := s.repo.Sync(ctx, false); err != nil {
			return nil, err
		}
		s.synced = true
	}

	path := s.repo.FilePath(name)
	data, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return nil, &NotFoundError{Path: path, Err: err}
	case err != nil:
		return nil, errors.Wrap(err, s.ID())
	}
	return data, nil
}

// CachePath is the location of the local clone.
func (s *GitSource) CachePath() string {
	return s.repo.Path()
}

// ID returns the human-friendly version of this source.
func (s *GitSource) ID() string {
	return fmt.Sprintf("git(%s)", s.url)
}

// Stringer interface reuses ID
func (s *GitSource) String() string {
	return s.ID()
}

func (*GitSource) isSource() {}
