package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config contains configuration for the watcher.
type Config struct {
	// Paths are the files or directories to watch. Directories are watched
	// recursively.
	Paths []string

	// Debounce is the quiet period after the last event before the changed
	// files are delivered. Default: 100ms.
	Debounce time.Duration

	// Extensions limits events to files with these extensions. Empty means
	// every file.
	Extensions []string

	// SkipHidden ignores files and directories starting with a dot.
	SkipHidden bool
}

// ChangeFunc receives the set of files changed during one debounce window,
// sorted.
type ChangeFunc func(ctx context.Context, files []string)

// EventFunc observes every accepted event before debouncing.
type EventFunc func(op string)

// Watcher watches unit sources for changes and reports them in batches.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   Config
	debounce *Debouncer
	onEvent  EventFunc

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// New creates a watcher. onEvent may be nil.
func New(cfg Config, onEvent EventFunc, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		logger:   logger.With("component", "watch"),
		config:   cfg,
		debounce: NewDebouncer(cfg.Debounce),
		onEvent:  onEvent,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks delivering batches of changed files to onChange until ctx
// is cancelled or Stop is called. A watcher runs at most once. onChange
// runs on a timer goroutine; calls never overlap and arrive in order.
// Returning does not release the fsnotify watcher; call Stop for that.
func (w *Watcher) Watch(ctx context.Context, onChange ChangeFunc) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	defer func() {
		w.debounce.Stop()
		close(w.doneCh)
	}()

	for _, p := range w.config.Paths {
		if err := w.addPath(p); err != nil {
			return fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}

	w.logger.Info("file watcher started",
		"paths", w.config.Paths,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	flush := func(files []string) {
		w.logger.Info("unit sources changed", "files", len(files))
		onChange(ctx, files)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handle(event, flush)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, flush func([]string)) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.hidden(event.Name) {
			if err := w.addDirectory(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.shouldProcess(event) {
		return
	}

	op := primaryOp(event.Op)
	w.logger.Debug("file event detected", "path", event.Name, "op", op)
	if w.onEvent != nil {
		w.onEvent(op)
	}
	w.debounce.Add(filepath.Clean(event.Name), flush)
}

// Stop stops the watcher, waits for Watch to return and closes the
// fsnotify watcher. It is safe to call more than once, and after Watch has
// already returned.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.doneCh
		}

		if err := w.watcher.Close(); err != nil {
			w.stopErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return w.stopErr
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDirectory(path)
	}
	return w.watcher.Add(path)
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dir && w.hidden(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", path, err)
			}
			w.logger.Debug("watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.hidden(event.Name) {
		return false
	}
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func (w *Watcher) hidden(path string) bool {
	return w.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".")
}

// primaryOp names the most significant operation in op.
func primaryOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Write):
		return "write"
	default:
		return "other"
	}
}
