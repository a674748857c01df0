package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/deepreload/pkg/host"
	"mercator-hq/deepreload/pkg/loader"
	"mercator-hq/deepreload/pkg/resolve"
	"mercator-hq/deepreload/pkg/telemetry/logging"
	"mercator-hq/deepreload/pkg/telemetry/tracing"
	"mercator-hq/deepreload/pkg/unit"
)

// DefaultExclude protects the host's runtime, entry-point and builtin
// units from being reset by a reload.
var DefaultExclude = []string{unit.RuntimeName, unit.MainName, unit.BuiltinsName}

// Option configures a single Reload call.
type Option func(*options)

type options struct {
	exclude []string
	report  *Report
}

// WithExclude replaces the default exclusion list. Units named here are
// never reloaded, even when reachable from the target.
func WithExclude(names ...string) Option {
	return func(o *options) {
		o.exclude = append([]string{}, names...)
	}
}

// WithReport stores the call's report in r once the call returns.
func WithReport(r *Report) Option {
	return func(o *options) {
		o.report = r
	}
}

// Reloader recursively reloads units and everything they import.
//
// A Reloader is bound to one host. Reload calls on it do not nest: a
// second call while one is running fails with ErrReentrant instead of
// waiting. Callers with several goroutines must serialize reloads
// themselves.
type Reloader struct {
	host   *host.Host
	logger *slog.Logger
	tracer trace.Tracer

	running sync.Mutex
	visited visitedSet
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for reload and unit load spans.
func WithTracer(tracer trace.Tracer) ReloaderOption {
	return func(r *Reloader) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// New creates a Reloader for h.
func New(h *host.Host, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		host:    h,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracing.InstrumentationName),
		visited: make(visitedSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reloader")
	return r
}

// Reload re-executes target and, through the import interceptor, every
// unit target's code imports, directly or transitively. Each reachable
// unit is executed at most once; units in the exclusion list are served
// from the module table without being executed.
//
// The host's import strategy is restored before Reload returns, on every
// path.
func (r *Reloader) Reload(ctx context.Context, target *unit.Unit, opts ...Option) (*unit.Unit, error) {
	if target == nil {
		return nil, errors.New("reload target is nil")
	}

	o := options{exclude: DefaultExclude}
	for _, opt := range opts {
		opt(&o)
	}

	if !r.running.TryLock() {
		r.logger.WarnContext(ctx, "rejected nested reload", "unit", target.Name)
		if o.report != nil {
			*o.report = Report{Root: target.Name, StartedAt: time.Now(), Err: ErrReentrant}
		}
		return nil, ErrReentrant
	}
	defer r.running.Unlock()

	report := newReport(target.Name, o.exclude)
	ctx = logging.WithReloadID(ctx, report.ID)
	ctx, span := r.tracer.Start(ctx, tracing.SpanReload,
		trace.WithAttributes(tracing.ReloadAttributes(report.ID, target.Name)...),
	)

	s := &session{
		ctx:     ctx,
		host:    r.host,
		logger:  r.logger,
		tracer:  r.tracer,
		visited: r.visited.seed(o.exclude),
		report:  report,
	}

	u, err := r.run(s, target.Name)

	report.Duration = time.Since(report.StartedAt)
	report.Err = err
	span.SetAttributes(attribute.Int(tracing.AttrReloadUnits, len(report.Reloaded)))
	tracing.SetStatus(span, err)
	span.End()

	if o.report != nil {
		*o.report = *report
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "reload failed",
			"unit", target.Name,
			"reloaded", len(report.Reloaded),
			"error", err,
		)
		return nil, err
	}

	r.logger.InfoContext(ctx, "reload complete",
		"unit", target.Name,
		"reloaded", len(report.Reloaded),
		"duration", report.Duration,
	)
	return u, nil
}

// ReloadName reloads the registered unit called name.
func (r *Reloader) ReloadName(ctx context.Context, name string, opts ...Option) (*unit.Unit, error) {
	u, ok := r.host.Table().Get(name)
	if !ok {
		return nil, &resolve.NotFoundError{Name: name}
	}
	return r.Reload(ctx, u, opts...)
}

// run installs the interceptor, reloads name and always restores the
// previous strategy and clears the visited set.
func (r *Reloader) run(s *session, name string) (u *unit.Unit, err error) {
	defer s.visited.clear()

	restore, err := r.host.Install(newInterceptor(s))
	if err != nil {
		if errors.Is(err, host.ErrStrategyInstalled) {
			return nil, fmt.Errorf("%w: %w", ErrReentrant, err)
		}
		return nil, err
	}
	defer restore()

	parentName, leaf := resolve.SplitParent(name)
	var parent *unit.Unit
	if parentName != "" {
		p, ok := r.host.Table().Get(parentName)
		if !ok {
			return nil, &resolve.ParentError{Scope: name, Parent: parentName}
		}
		parent = p
	}

	u, err = s.loadOnce(leaf, name, parent)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &resolve.NotFoundError{Name: name}
	}
	return u, nil
}

// session is the state of one Reload call.
type session struct {
	ctx     context.Context
	host    *host.Host
	logger  *slog.Logger
	tracer  trace.Tracer
	visited visitedSet
	report  *Report
}

// loadOnce returns the unit called name, executing it again only if this
// reload has not reached name before. The name is marked before the load
// starts, so a cycle back to it is served from the module table. A nil
// unit with a nil error means not found.
func (s *session) loadOnce(short, name string, parent *unit.Unit) (*unit.Unit, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	if s.visited.has(name) {
		if u, ok := s.host.Table().Get(name); ok {
			return u, nil
		}
		return nil, nil
	}
	s.visited.mark(name)

	_, span := s.tracer.Start(s.ctx, tracing.SpanUnitLoad,
		trace.WithAttributes(attribute.String(tracing.AttrUnitName, name)),
	)
	defer span.End()

	l := s.host.Loader()
	h, err := l.FindChild(short, parent)
	if err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			s.report.Missing = append(s.report.Missing, name)
			span.SetAttributes(attribute.Bool(tracing.AttrUnitFound, false))
			return nil, nil
		}
		tracing.SetStatus(span, err)
		return nil, err
	}

	s.logger.DebugContext(s.ctx, "reloading unit", "unit", name, "file", h.File)
	s.report.Reloaded = append(s.report.Reloaded, name)

	u, err := l.Execute(name, h)
	if err != nil {
		tracing.SetStatus(span, err)
		return nil, err
	}

	if parent != nil {
		if err := s.host.Table().RegisterChild(parent.Name, short, u); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(tracing.UnitAttributes(name, h.File, u.Generation())...)
	return u, nil
}

// interceptor is the import strategy installed for the duration of a
// reload. It resolves every import through the session's loadOnce.
type interceptor struct {
	resolver *resolve.Resolver
}

func newInterceptor(s *session) *interceptor {
	return &interceptor{resolver: resolve.New(s.host.Table(), s.loadOnce)}
}

// Import implements host.Strategy.
func (i *interceptor) Import(name string, caller *unit.Scope, fromlist []string) (*unit.Unit, error) {
	return i.resolver.Import(name, caller, fromlist)
}
