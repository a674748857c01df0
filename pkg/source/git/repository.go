package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"mercator-hq/deepreload/pkg/config"
)

// DefaultLocalDir is the checkout directory, under the system temp
// directory, used when git.clone.local_path is empty.
const DefaultLocalDir = "deepreload-units"

// ErrNotOpen is returned by operations on a repository that has not been
// opened yet.
var ErrNotOpen = errors.New("repository not opened, call Open first")

// Repository is a local checkout of the unit repository.
type Repository struct {
	config    config.GitConfig
	localPath string
	auth      transport.AuthMethod
	logger    *slog.Logger

	mu   sync.RWMutex
	repo *gogit.Repository
}

// NewRepository creates a repository manager for cfg. Nothing touches the
// disk until Open.
func NewRepository(cfg *config.GitConfig, logger *slog.Logger) (*Repository, error) {
	if cfg == nil {
		return nil, errors.New("git config is nil")
	}
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("branch cannot be empty")
	}

	auth, err := NewAuth(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth: %w", err)
	}

	localPath := cfg.Clone.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), DefaultLocalDir)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		config:    *cfg,
		localPath: localPath,
		auth:      auth,
		logger:    logger.With("component", "git", "repository", cfg.Repository),
	}, nil
}

// Open clones the repository, or opens an existing checkout at the local
// path unless clone.clean_on_start is set.
func (r *Repository) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	if r.config.Clone.CleanOnStart {
		if err := os.RemoveAll(r.localPath); err != nil {
			return fmt.Errorf("failed to clean existing checkout: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		r.repo = repo
		r.logger.Info("opened existing checkout", "path", r.localPath)
		return nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(ctx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		Auth:          r.auth,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  r.config.Clone.Depth > 0,
		Depth:         r.config.Clone.Depth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo

	r.logger.Info("cloned repository",
		"branch", r.config.Branch,
		"path", r.localPath,
		"duration", time.Since(start),
	)
	return nil
}

// Pull fetches the tracked branch and fast-forwards the checkout.
func (r *Repository) Pull(ctx context.Context) (*PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, ErrNotOpen
	}

	from, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		Auth:          r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	to, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	result := &PullResult{FromSHA: from.Hash().String(), ToSHA: to.Hash().String()}
	if result.HadChanges() {
		files, err := r.changedFiles(from.Hash(), to.Hash())
		if err != nil {
			return nil, err
		}
		result.ChangedFiles = files
	}
	return result, nil
}

// Head returns the commit currently checked out.
func (r *Repository) Head() (*CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotOpen
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return r.commitInfo(commit), nil
}

// Log returns up to limit commits reachable from HEAD, newest first.
func (r *Repository) Log(limit int) ([]*CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotOpen
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	iter, err := r.repo.Log(&gogit.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer iter.Close()

	var out []*CommitInfo
	for limit <= 0 || len(out) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		out = append(out, r.commitInfo(c))
	}
	return out, nil
}

// ChangedFiles returns the repository-relative paths that differ between
// two commits.
func (r *Repository) ChangedFiles(fromSHA, toSHA string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotOpen
	}
	return r.changedFiles(plumbing.NewHash(fromSHA), plumbing.NewHash(toSHA))
}

// Reset moves the tracked branch and the worktree to sha, discarding
// anything after it.
func (r *Repository) Reset(sha string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return ErrNotOpen
	}

	hash := plumbing.NewHash(sha)
	if _, err := r.repo.CommitObject(hash); err != nil {
		return fmt.Errorf("target commit %s not found: %w", ShortSHA(sha), err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: hash, Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ShortSHA(sha), err)
	}

	r.logger.Info("reset checkout", "sha", ShortSHA(sha))
	return nil
}

// LocalPath returns the checkout directory.
func (r *Repository) LocalPath() string {
	return r.localPath
}

// UnitPath returns the directory inside the checkout that unit search
// paths are relative to.
func (r *Repository) UnitPath() string {
	return filepath.Join(r.localPath, r.config.Path)
}

// Abs converts repository-relative paths to absolute paths in the
// checkout.
func (r *Repository) Abs(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Join(r.localPath, filepath.FromSlash(f))
	}
	return out
}

func (r *Repository) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", ShortSHA(from.String()), err)
	}
	toCommit, err := r.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", ShortSHA(to.String()), err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	seen := make(map[string]bool, len(changes))
	files := make([]string, 0, len(changes))
	for _, c := range changes {
		// Additions only have a To side, deletions only a From side and
		// renames both.
		for _, name := range []string{c.From.Name, c.To.Name} {
			if name != "" && !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repository) commitInfo(c *object.Commit) *CommitInfo {
	return &CommitInfo{
		SHA:       c.Hash.String(),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Timestamp: c.Author.When,
		Message:   c.Message,
		Branch:    r.config.Branch,
	}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Poll.Timeout > 0 {
		return context.WithTimeout(ctx, r.config.Poll.Timeout)
	}
	return context.WithCancel(ctx)
}
