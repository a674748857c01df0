package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/deepreload/pkg/config"
	"mercator-hq/deepreload/pkg/history"
	"mercator-hq/deepreload/pkg/host"
	"mercator-hq/deepreload/pkg/loader"
	"mercator-hq/deepreload/pkg/reload"
	"mercator-hq/deepreload/pkg/schedule"
	"mercator-hq/deepreload/pkg/source/git"
	"mercator-hq/deepreload/pkg/telemetry/logging"
	"mercator-hq/deepreload/pkg/telemetry/metrics"
	"mercator-hq/deepreload/pkg/unit"
	"mercator-hq/deepreload/pkg/watch"
)

// Triggers recorded with each reload.
const (
	TriggerManual   = "manual"
	TriggerWatch    = "watch"
	TriggerGit      = "git"
	TriggerSchedule = "schedule"
)

// Git sync statuses reported to metrics besides success and failure.
const (
	SyncRolledBack = "rolled_back"
	SyncSkipped    = "skipped"
)

// Manager owns a host and its module table and drives reloads of the
// configured roots from every trigger: explicit calls, file system
// watches, git polls and cron schedules. Reloads from all of them are
// serialized.
type Manager struct {
	config   *config.Config
	logger   *slog.Logger
	table    *unit.Table
	loader   *loader.Loader
	host     *host.Host
	reloader *reload.Reloader
	history  history.Store
	metrics  *metrics.Collector
	repo     *git.Repository
	poller   *git.Poller

	// baseLogger carries no component; subsystems add their own.
	baseLogger *slog.Logger

	// reloadMu is the single lock every reload and load runs under.
	reloadMu sync.Mutex

	mu         sync.RWMutex
	roots      []string
	lastErr    error
	lastReload time.Time
	watcher    *watch.Watcher
	scheduler  *schedule.Scheduler
	closed     bool
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	source  loader.Source
	history history.Store
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSource reads unit sources from src instead of the file system.
func WithSource(src loader.Source) Option {
	return func(o *options) { o.source = src }
}

// WithHistory records reloads in store instead of the one the history
// config selects. The manager closes it on Close.
func WithHistory(store history.Store) Option {
	return func(o *options) { o.history = store }
}

// WithMetrics records metrics in c instead of a private collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithTracer sets the tracer used for reload spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New creates a manager for cfg. Nothing is loaded until Load.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		config:     cfg,
		logger:     logger.With("component", "manager"),
		baseLogger: logger,
		table:      unit.NewTable(),
	}

	searchPaths := cfg.Units.SearchPaths
	if cfg.Git.Enabled {
		repo, err := git.NewRepository(&cfg.Git, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create git repository: %w", err)
		}
		m.repo = repo
		searchPaths = inCheckout(repo.UnitPath(), searchPaths)
		m.poller = git.NewPoller(repo, cfg.Git.Poll.Interval, m.onGitChange, logger,
			git.WithCheckHook(m.recordSync))
	}

	lcfg := loader.DefaultConfig()
	lcfg.SearchPaths = searchPaths
	if cfg.Units.MaxFileSize > 0 {
		lcfg.MaxFileSize = cfg.Units.MaxFileSize
	}
	if len(cfg.Units.Extensions) > 0 {
		lcfg.Extensions = cfg.Units.Extensions
	}
	m.loader = loader.New(lcfg, o.source, m.table, logger)

	h, err := host.New(m.table, m.loader, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}
	m.host = h

	ropts := []reload.ReloaderOption{reload.WithLogger(logger)}
	if o.tracer != nil {
		ropts = append(ropts, reload.WithTracer(o.tracer))
	}
	m.reloader = reload.New(h, ropts...)

	m.metrics = o.metrics
	if m.metrics == nil {
		m.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	m.history = o.history
	if m.history == nil {
		store, err := history.Open(&cfg.History, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		m.history = store
	}

	return m, nil
}

// inCheckout resolves relative search paths inside the git checkout.
func inCheckout(dir string, paths []string) []string {
	if len(paths) == 0 {
		return []string{dir}
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(dir, p)
		}
	}
	return out
}

// Load opens the git checkout when git is enabled and imports every
// configured root through the host's default strategy. Roots that fail
// are reported in an ErrorList; the rest stay loaded.
func (m *Manager) Load(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if m.isClosed() {
		return ErrClosed
	}

	start := time.Now()
	if m.repo != nil {
		if err := m.repo.Open(ctx); err != nil {
			return fmt.Errorf("failed to open git source: %w", err)
		}
	}

	var errs ErrorList
	for _, root := range m.config.Units.Roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.importRoot(root); err != nil {
			errs.Add(err)
		}
	}
	m.metrics.SetUnitsLoaded(m.table.Count())

	err := errs.ToError()
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	if err != nil {
		m.logger.ErrorContext(ctx, "failed to load roots", "failed", len(errs.Errors), "error", err)
		return err
	}
	m.logger.InfoContext(ctx, "roots loaded",
		"roots", len(m.config.Units.Roots),
		"units", m.table.Count(),
		"version", m.table.Version(),
		"duration", time.Since(start),
	)
	return nil
}

// importRoot imports root through the default strategy and remembers it
// as loaded.
func (m *Manager) importRoot(root string) error {
	if _, err := m.host.ImportUnit(root); err != nil {
		return &RootError{Root: root, Cause: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roots {
		if r == root {
			return nil
		}
	}
	m.roots = append(m.roots, root)
	return nil
}

// Reload reloads the unit called name and everything it imports. The
// returned report is non-nil even when the reload fails.
func (m *Manager) Reload(ctx context.Context, name string) (*reload.Report, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.reloadLocked(ctx, name)
}

func (m *Manager) reloadLocked(ctx context.Context, name string) (*reload.Report, error) {
	trigger := logging.GetTrigger(ctx)
	if trigger == "" {
		trigger = TriggerManual
		ctx = logging.WithTrigger(ctx, trigger)
	}

	var opts []reload.Option
	if m.config.Units.Exclude != nil {
		opts = append(opts, reload.WithExclude(m.config.Units.Exclude...))
	}
	report := &reload.Report{}
	opts = append(opts, reload.WithReport(report))

	_, err := m.reloader.ReloadName(ctx, name, opts...)
	if report.ID == "" {
		// The name was not in the table, so no reload ran.
		*report = reload.Report{Root: name, StartedAt: time.Now(), Err: err}
	}

	switch {
	case errors.Is(err, reload.ErrReentrant):
		m.metrics.RecordReentrancyRejection()
	default:
		m.metrics.RecordReload(report.Status(), report.Duration, len(report.Reloaded), len(report.Missing))
	}
	m.metrics.SetUnitsLoaded(m.table.Count())

	rec := history.NewRecord(report, trigger, m.table.Version())
	if herr := m.history.Record(ctx, rec); herr != nil {
		m.logger.WarnContext(ctx, "failed to record reload history", "unit", name, "error", herr)
	}

	m.mu.Lock()
	m.lastErr = err
	m.lastReload = time.Now()
	m.mu.Unlock()

	return report, err
}

// ReloadAll reloads every configured root. A root that failed to load
// earlier is imported again instead.
func (m *Manager) ReloadAll(ctx context.Context) ([]*reload.Report, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.reloadRootsLocked(ctx, m.config.Units.Roots)
}

func (m *Manager) reloadRootsLocked(ctx context.Context, roots []string) ([]*reload.Report, error) {
	var (
		reports []*reload.Report
		errs    ErrorList
	)
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}

		if _, ok := m.table.Get(root); !ok {
			if err := m.importRoot(root); err != nil {
				errs.Add(err)
				m.mu.Lock()
				m.lastErr = err
				m.mu.Unlock()
			}
			continue
		}

		report, err := m.reloadLocked(ctx, root)
		reports = append(reports, report)
		if err != nil {
			errs.Add(&RootError{Root: root, Cause: err})
		}
	}
	m.metrics.SetUnitsLoaded(m.table.Count())
	return reports, errs.ToError()
}

// ReloadFiles reloads the roots affected by changes to files. Files are
// mapped to the units last executed from them; a root is reloaded when
// one of those units is reachable from it. A file no loaded unit came from
// may be a new unit, so it reloads every root.
func (m *Manager) ReloadFiles(ctx context.Context, files []string) ([]*reload.Report, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}

	var changed []string
	unknown := false
	for _, f := range files {
		if name, ok := m.table.LookupFile(f); ok {
			changed = append(changed, name)
		} else {
			unknown = true
		}
	}

	roots := m.config.Units.Roots
	if !unknown {
		roots = BuildGraph(m.table, roots).Affected(changed)
	}
	if len(roots) == 0 {
		m.logger.DebugContext(ctx, "no roots affected by change", "files", files)
		return nil, nil
	}

	m.logger.InfoContext(ctx, "reloading roots for changed files",
		"files", len(files),
		"units", changed,
		"roots", roots,
	)
	return m.reloadRootsLocked(ctx, roots)
}

// Watch watches the search paths and reloads affected roots when unit
// sources change. It blocks until ctx is done or the manager is closed.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := watch.New(watch.Config{
		Paths:      m.loader.SearchPaths(),
		Debounce:   m.config.Watch.Debounce,
		Extensions: m.loader.Extensions(),
		SkipHidden: m.config.Watch.SkipHidden,
	}, m.metrics.RecordWatchEvent, m.baseLogger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = w.Stop()
		return ErrClosed
	}
	if m.watcher != nil {
		m.mu.Unlock()
		_ = w.Stop()
		return errors.New("already watching")
	}
	m.watcher = w
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.watcher = nil
		m.mu.Unlock()
		if err := w.Stop(); err != nil {
			m.logger.Warn("failed to stop file watcher", "error", err)
		}
	}()

	return w.Watch(ctx, func(ctx context.Context, files []string) {
		ctx = logging.WithTrigger(ctx, TriggerWatch)
		if _, err := m.ReloadFiles(ctx, files); err != nil {
			m.logger.ErrorContext(ctx, "reload after file change failed", "files", files, "error", err)
		}
	})
}

// Sync pulls the git source once and reloads the roots the pulled files
// affect. A failed reload rolls the checkout back to the last commit that
// loaded cleanly and reloads again.
func (m *Manager) Sync(ctx context.Context) (*git.SyncResult, error) {
	if m.poller == nil {
		return nil, ErrGitDisabled
	}
	if m.isClosed() {
		return nil, ErrClosed
	}
	return m.poller.Check(ctx)
}

// StartGitPoll starts polling the git source in the background when
// git.poll.enabled is set.
func (m *Manager) StartGitPoll(ctx context.Context) error {
	if m.poller == nil {
		return ErrGitDisabled
	}
	if !m.config.Git.Poll.Enabled {
		return nil
	}
	return m.poller.Start(ctx)
}

func (m *Manager) onGitChange(ctx context.Context, files []string) error {
	_, err := m.ReloadFiles(logging.WithTrigger(ctx, TriggerGit), files)
	return err
}

func (m *Manager) recordSync(result *git.SyncResult, err error) {
	switch {
	case result != nil && result.RolledBack:
		m.metrics.RecordGitSync(SyncRolledBack)
	case err != nil:
		m.metrics.RecordGitSync(metrics.StatusFailure)
	case result.Skipped:
		m.metrics.RecordGitSync(SyncSkipped)
	default:
		m.metrics.RecordGitSync(metrics.StatusSuccess)
	}
}

// Commits returns up to limit commits of the git checkout, newest first.
func (m *Manager) Commits(limit int) ([]*git.CommitInfo, error) {
	if m.repo == nil {
		return nil, ErrGitDisabled
	}
	return m.repo.Log(limit)
}

// StartSchedule starts the cron jobs in the schedule config: periodic
// reloads of every root and history pruning. The scheduler stops when ctx
// is done or the manager is closed.
func (m *Manager) StartSchedule(ctx context.Context) error {
	s := schedule.New(m.baseLogger)

	err := s.Add("reload", m.config.Schedule.Reload, func(ctx context.Context) {
		ctx = logging.WithTrigger(ctx, TriggerSchedule)
		if _, err := m.ReloadAll(ctx); err != nil {
			m.logger.ErrorContext(ctx, "scheduled reload failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	if m.config.History.RetentionDays > 0 {
		err := s.Add("prune", m.config.Schedule.Prune, func(ctx context.Context) {
			if _, err := m.PruneHistory(ctx); err != nil {
				m.logger.ErrorContext(ctx, "history prune failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.scheduler != nil {
		return errors.New("schedule already started")
	}
	m.scheduler = s
	s.Start(ctx)
	return nil
}

// Schedule returns the scheduled jobs, or nil before StartSchedule.
func (m *Manager) Schedule() []schedule.Entry {
	m.mu.RLock()
	s := m.scheduler
	m.mu.RUnlock()
	if s == nil {
		return nil
	}
	return s.Entries()
}

// PruneHistory deletes history older than the retention period.
func (m *Manager) PruneHistory(ctx context.Context) (int64, error) {
	days := m.config.History.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := m.history.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.logger.InfoContext(ctx, "pruned reload history", "deleted", n, "older_than", cutoff)
	return n, nil
}

// History lists recorded reloads.
func (m *Manager) History(ctx context.Context, q history.Query) ([]*history.Record, error) {
	return m.history.List(ctx, q)
}

// Graph returns the import graph reachable from roots, or from every
// loaded root when none are given.
func (m *Manager) Graph(roots ...string) *Graph {
	if len(roots) == 0 {
		roots = m.Roots()
	}
	return BuildGraph(m.table, roots)
}

// Units returns metadata for every unit in the module table.
func (m *Manager) Units() []unit.Metadata {
	return m.table.Metadata()
}

// Roots returns the roots that are currently loaded.
func (m *Manager) Roots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.roots...)
}

// LastError returns the error of the most recent load or reload.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastReload returns when the most recent reload finished.
func (m *Manager) LastReload() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReload
}

// Table returns the module table.
func (m *Manager) Table() *unit.Table {
	return m.table
}

// Host returns the host units are imported in.
func (m *Manager) Host() *host.Host {
	return m.host
}

// Metrics returns the metrics collector.
func (m *Manager) Metrics() *metrics.Collector {
	return m.metrics
}

// Close stops watching, polling and scheduling and closes the history
// store. It waits for a reload in progress to finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	w, s := m.watcher, m.scheduler
	m.mu.Unlock()

	var errs ErrorList
	if w != nil {
		errs.Add(w.Stop())
	}
	if s != nil {
		s.Stop()
	}
	if m.poller != nil {
		m.poller.Stop()
	}

	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	errs.Add(m.history.Close())

	m.logger.Info("manager closed")
	return errs.ToError()
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
