package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChangeFunc is called with the absolute paths of the files a pull
// changed. A non-nil error makes the poller roll the checkout back.
type ChangeFunc func(ctx context.Context, files []string) error

// CheckHook observes the outcome of every check.
type CheckHook func(result *SyncResult, err error)

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithCheckHook sets a hook called after every check, including checks
// made through Check directly.
func WithCheckHook(hook CheckHook) PollerOption {
	return func(p *Poller) {
		p.hook = hook
	}
}

// Poller checks the repository for new commits and hands changed files to
// a ChangeFunc. When the callback rejects a commit, the checkout is reset
// to the last good commit, the callback runs again with the files of the
// rollback, and the rejected commit is skipped on later polls until the
// branch moves past it.
type Poller struct {
	repo     *Repository
	interval time.Duration
	onChange ChangeFunc
	hook     CheckHook
	logger   *slog.Logger

	checkMu sync.Mutex

	mu       sync.Mutex
	lastGood string
	rejected string
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPoller creates a poller for repo. The repository must be open.
func NewPoller(repo *Repository, interval time.Duration, onChange ChangeFunc, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		repo:     repo,
		interval: interval,
		onChange: onChange,
		logger:   logger.With("component", "git_poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling in the background until ctx is done or Stop is
// called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("poller already running")
	}
	if p.interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", p.interval)
	}
	if err := p.initLocked(); err != nil {
		return err
	}

	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop(ctx, p.stopCh, p.doneCh)

	p.logger.Info("poller started", "interval", p.interval, "commit", ShortSHA(p.lastGood))
	return nil
}

// Stop stops a running poller and waits for an in-flight check.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

// Running reports whether the poller is polling.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastGood returns the commit the callback last accepted.
func (p *Poller) LastGood() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastGood
}

func (p *Poller) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil {
				p.logger.Error("git sync failed", "error", err)
			}
		}
	}
}

// Check pulls once and runs the callback if the pull changed anything.
// It can be called whether or not the poller is running; checks never
// overlap.
func (p *Poller) Check(ctx context.Context) (result *SyncResult, err error) {
	p.checkMu.Lock()
	defer p.checkMu.Unlock()

	if p.hook != nil {
		defer func() { p.hook(result, err) }()
	}

	p.mu.Lock()
	if err := p.initLocked(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	lastGood, rejected := p.lastGood, p.rejected
	p.mu.Unlock()

	pulled, err := p.repo.Pull(ctx)
	if err != nil {
		return nil, err
	}

	result = &SyncResult{FromSHA: lastGood, ToSHA: pulled.ToSHA}
	if pulled.ToSHA == lastGood {
		return result, nil
	}

	if pulled.ToSHA == rejected {
		if err := p.repo.Reset(lastGood); err != nil {
			return nil, err
		}
		p.logger.Debug("skipping rejected commit", "sha", ShortSHA(rejected))
		result.ToSHA = lastGood
		result.Skipped = true
		return result, nil
	}

	files, err := p.repo.ChangedFiles(lastGood, pulled.ToSHA)
	if err != nil {
		return nil, err
	}
	result.ChangedFiles = p.repo.Abs(files)

	p.logger.Info("detected changes",
		"from_sha", ShortSHA(lastGood),
		"to_sha", ShortSHA(pulled.ToSHA),
		"changed_files", len(files),
	)

	if err := p.onChange(ctx, result.ChangedFiles); err != nil {
		return result, p.rollback(ctx, result, err)
	}

	p.mu.Lock()
	p.lastGood = pulled.ToSHA
	p.rejected = ""
	p.mu.Unlock()
	return result, nil
}

// rollback resets the checkout to the last good commit after cause and
// reloads the files the reset touched.
func (p *Poller) rollback(ctx context.Context, result *SyncResult, cause error) error {
	p.logger.Error("change rejected, rolling back",
		"error", cause,
		"sha", ShortSHA(result.ToSHA),
		"rollback_to", ShortSHA(result.FromSHA),
	)

	if err := p.repo.Reset(result.FromSHA); err != nil {
		return fmt.Errorf("change rejected: %w (rollback failed: %v)", cause, err)
	}

	p.mu.Lock()
	p.rejected = result.ToSHA
	p.mu.Unlock()
	result.RolledBack = true

	if err := p.onChange(ctx, result.ChangedFiles); err != nil {
		return fmt.Errorf("change rejected: %w (reload after rollback failed: %v)", cause, err)
	}
	return fmt.Errorf("change rejected: %w", cause)
}

// initLocked records HEAD as the last good commit the first time it runs.
func (p *Poller) initLocked() error {
	if p.lastGood != "" {
		return nil
	}
	head, err := p.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get initial commit: %w", err)
	}
	p.lastGood = head.SHA
	return nil
}
