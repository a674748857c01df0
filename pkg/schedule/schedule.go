package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Parser accepts standard five-field expressions and descriptors such as
// "@hourly" and "@every 5m".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a scheduled function. Its context is cancelled when the scheduler
// stops.
type Job func(ctx context.Context)

// Entry describes a scheduled job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// Scheduler runs named jobs on cron schedules. A job that is still running
// when its next activation arrives is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *slog.Logger
	ids     map[string]cron.EntryID
	specs   map[string]string
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")

	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ids:    make(map[string]cron.EntryID),
		specs:  make(map[string]string),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add schedules job under name. An empty spec is ignored.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if spec == "" {
		return nil
	}
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}

	ctx := s.ctx
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Debug("running scheduled job", "job", name)
		job(ctx)
		s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.ids[name] = id
	s.specs[name] = spec
	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start starts running jobs. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Entries returns the scheduled jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.ids))
	for name, id := range s.ids {
		e := s.cron.Entry(id)
		out = append(out, Entry{Name: name, Spec: s.specs[name], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
