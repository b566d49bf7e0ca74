package distroinfo

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/distroinfo/events"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

const (
	// fetchMarker is written into .git after every clone and fetch. It
	// holds the default branch recorded at clone time.
	fetchMarker = "distroinfo-fetched"

	// fallbackBranch is used when the default branch cannot be determined.
	fallbackBranch = "master"
)

// RepoManager keeps a local clone of a git repository in sync with its
// origin.
type RepoManager struct {
	url      string
	baseDir  string
	repoName string
	repoPath string
	ttl      time.Duration

	logger hclog.Logger
	event  events.EventHandler
}

// RepoManagerInput is the input structure for NewRepoManager.
type RepoManagerInput struct {
	// URL of the repository. When empty, the clone at RepoDir is used as is
	// and never touched.
	URL string
	// BaseDir is the directory clones are kept in.
	BaseDir string
	// RepoDir overrides the clone location. Defaults to
	// BaseDir/<repo name><DirPostfix>.
	RepoDir string
	// DirPostfix is appended to the repository name to form the clone
	// directory name.
	DirPostfix string
	// TTL is how long a fetch stays fresh. Zero fetches on every Sync.
	TTL time.Duration

	Logger       hclog.Logger
	EventHandler events.EventHandler
}

// NewRepoManager validates the input and returns a RepoManager. The
// repository name is the part of the URL after its last slash.
func NewRepoManager(i RepoManagerInput) (*RepoManager, error) {
	r := &RepoManager{
		url:    i.URL,
		ttl:    i.TTL,
		logger: i.Logger,
		event:  i.EventHandler,
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}
	if r.event == nil {
		r.event = func(events.Event) {}
	}

	if i.BaseDir != "" {
		base, err := filepath.Abs(i.BaseDir)
		if err != nil {
			return nil, errors.Wrap(err, "repo base dir")
		}
		r.baseDir = base
	}

	if i.URL != "" {
		r.repoName = i.URL[strings.LastIndex(i.URL, "/")+1:]
		if r.repoName == "" {
			return nil, &RepoError{
				What: fmt.Sprintf("Failed to parse git repo URL: %s", i.URL),
			}
		}
	}

	switch {
	case i.RepoDir != "":
		r.repoPath = i.RepoDir
		if r.repoName == "" {
			r.repoName = filepath.Base(i.RepoDir)
		}
	case r.repoName != "":
		r.repoPath = filepath.Join(r.baseDir, r.repoName+i.DirPostfix)
	default:
		return nil, &RepoError{What: "neither a repo URL nor a repo dir was given"}
	}

	return r, nil
}

// Path is the location of the local clone.
func (r *RepoManager) Path() string {
	return r.repoPath
}

// Name is the repository name derived from the URL.
func (r *RepoManager) Name() string {
	return r.repoName
}

// FilePath returns the location of name within the clone.
func (r *RepoManager) FilePath(name string) string {
	return filepath.Join(r.repoPath, name)
}

// Sync makes sure the clone exists and is up to date. A clone whose origin
// does not point at the URL is removed and cloned again. An up to date
// clone is only fetched when force is set, no TTL is configured or the last
// fetch is older than the TTL.
func (r *RepoManager) Sync(ctx context.Context, force bool) error {
	if r.url == "" {
		if !isDir(r.repoPath) {
			return &NotADirectoryError{Path: r.repoPath}
		}
		return nil
	}

	if r.baseDir != "" && !isDir(r.baseDir) {
		r.logger.Info("creating base directory", "path", r.baseDir)
		if err := ensureDir(r.baseDir); err != nil {
			return err
		}
	}

	if !isDir(r.repoPath) {
		return r.clone(ctx)
	}

	repo, err := r.checkRemote()
	if err != nil {
		r.logger.Warn("git repo didn't pass the checks, renewing", "path", r.repoPath, "error", err)
		r.event(events.RepoRenew{ID: r.repoName, Path: r.repoPath})
		if err := os.RemoveAll(r.repoPath); err != nil {
			return errors.Wrapf(err, "removing %s", r.repoPath)
		}
		return r.clone(ctx)
	}
	return r.fetch(ctx, repo, force)
}

func (r *RepoManager) clone(ctx context.Context) error {
	r.logger.Info("cloning git repo", "url", r.url, "path", r.repoPath)
	r.event(events.RepoClone{ID: r.repoName, URL: r.url, Path: r.repoPath})

	repo, err := git.PlainCloneContext(ctx, r.repoPath, false, &git.CloneOptions{
		URL: r.url,
	})
	if err != nil {
		os.RemoveAll(r.repoPath)
		return &CommandFailedError{Op: "clone", Path: r.url, Err: err}
	}

	branch := fallbackBranch
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return r.markFetched(branch)
}

// checkRemote opens the clone and verifies origin lists the URL.
func (r *RepoManager) checkRemote() (*git.Repository, error) {
	repo, err := git.PlainOpen(r.repoPath)
	if err != nil {
		return nil, &RepoError{What: fmt.Sprintf("%s isn't a git repo: %s", r.repoPath, err)}
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return nil, &RepoError{What: "origin isn't set to expected URL: " + r.url}
	}
	for _, u := range remote.Config().URLs {
		if u == r.url {
			return repo, nil
		}
	}
	return nil, &RepoError{What: "origin isn't set to expected URL: " + r.url}
}

func (r *RepoManager) fetch(ctx context.Context, repo *git.Repository, force bool) error {
	if !force && r.ttl > 0 {
		if age, ok := r.lastFetchAge(); ok {
			if age < r.ttl {
				r.logger.Info("existing git repo is fresh enough", "path", r.repoPath, "age", age)
				r.event(events.RepoFresh{ID: r.repoName, Age: age})
				return nil
			}
			r.logger.Info("existing git repo is too old", "path", r.repoPath, "age", age)
		}
	}

	branch := r.defaultBranch(repo)
	r.logger.Info("fetching git repo", "path", r.repoPath, "branch", branch)
	r.event(events.RepoFetch{ID: r.repoName, Path: r.repoPath, Branch: branch})

	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Force:      true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return &CommandFailedError{Op: "fetch", Path: r.repoPath, Err: err}
	}

	remoteRef, err := repo.Reference(
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch), true)
	if err != nil {
		return &CommandFailedError{Op: "checkout", Path: r.repoPath, Err: err}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return &CommandFailedError{Op: "checkout", Path: r.repoPath, Err: err}
	}
	opts := &git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	}
	if _, err := repo.Reference(opts.Branch, false); err != nil {
		opts.Create = true
		opts.Hash = remoteRef.Hash()
	}
	if err := wt.Checkout(opts); err != nil {
		return &CommandFailedError{Op: "checkout", Path: r.repoPath, Err: err}
	}

	err = wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset})
	if err != nil {
		return &CommandFailedError{Op: "reset", Path: r.repoPath, Err: err}
	}
	return r.markFetched(branch)
}

// defaultBranch is the branch recorded at clone time, else the branch HEAD
// points to.
func (r *RepoManager) defaultBranch(repo *git.Repository) string {
	data, err := ioutil.ReadFile(filepath.Join(r.repoPath, git.GitDirName, fetchMarker))
	if branch := strings.TrimSpace(string(data)); err == nil && branch != "" {
		return branch
	}
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		return head.Name().Short()
	}
	return fallbackBranch
}

func (r *RepoManager) markFetched(branch string) error {
	path := filepath.Join(r.repoPath, git.GitDirName, fetchMarker)
	if err := ioutil.WriteFile(path, []byte(branch+"\n"), defaultFilePerms); err != nil {
		return errors.Wrap(err, "writing fetch marker")
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}

// lastFetchAge looks at our marker, then FETCH_HEAD left by the git
// command, then the .git directory itself.
func (r *RepoManager) lastFetchAge() (time.Duration, bool) {
	gitDir := filepath.Join(r.repoPath, git.GitDirName)
	for _, path := range []string{
		filepath.Join(gitDir, fetchMarker),
		filepath.Join(gitDir, "FETCH_HEAD"),
		gitDir,
	} {
		if age, ok := fileAge(path); ok {
			return age, true
		}
	}
	return 0, false
}
