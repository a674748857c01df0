package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/config"
	"mercator-hq/deepreload/pkg/manager"
	"mercator-hq/deepreload/pkg/telemetry/health"
	"mercator-hq/deepreload/pkg/telemetry/metrics"
	"mercator-hq/deepreload/pkg/telemetry/tracing"
)

const shutdownTimeout = 10 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the configured roots and keep them fresh",
	Long: `Load the configured roots and keep running. Depending on the
configuration, units are reloaded when their sources change on disk, when
the tracked Git branch moves and on a cron schedule. Metrics and health
endpoints are served on telemetry.metrics.listen_address.

Examples:
  # Start with default config
  deepreload run

  # Start with custom config
  deepreload run --config /etc/deepreload/config.yaml

  # Override listen address
  deepreload run --listen 0.0.0.0:9090

  # Validate config without starting
  deepreload run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override metrics and health listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}
	if err := requireRoots(cfg.Units.Roots); err != nil {
		return err
	}

	fmt.Fprintf(out, "deepreload v%s\n", Version)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, registry)

	m, err := manager.New(cfg,
		manager.WithLogger(logger),
		manager.WithMetrics(collector),
		manager.WithTracer(tracer.Tracer()),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer m.Close()

	ctx, cancel := context.WithCancel(cli.SetupSignalHandler(commandContext(cmd)))
	defer cancel()

	if err := m.Load(ctx); err != nil {
		var rootErr *manager.RootError
		if !errors.As(err, &rootErr) {
			return cli.NewCommandError("run", err)
		}
		logger.Warn("some roots failed to load", "error", err)
	}
	fmt.Fprintf(out, "✓ Loaded %s (%s)\n", plural(len(m.Roots()), "root"), plural(m.Table().Count(), "unit"))

	errChan := make(chan error, 3)

	var srv *http.Server
	if addr := cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           newMux(cfg, m, collector),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting HTTP server", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("server error: %w", err)
			}
		}()
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}

	if cfg.Watch.Enabled {
		go func() {
			if err := m.Watch(ctx); err != nil && !errors.Is(err, manager.ErrClosed) {
				errChan <- fmt.Errorf("watch error: %w", err)
			}
		}()
		fmt.Fprintln(out, "✓ Watching unit sources")
	}

	if cfg.Git.Enabled && cfg.Git.Poll.Enabled {
		if err := m.StartGitPoll(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Fprintf(out, "✓ Polling %s every %s\n", cfg.Git.Branch, cfg.Git.Poll.Interval)
	}

	if cfg.Schedule.Enabled {
		if err := m.StartSchedule(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		for _, e := range m.Schedule() {
			logger.Info("scheduled job", "job", e.Name, "schedule", e.Spec, "next", e.Next)
		}
		fmt.Fprintln(out, "✓ Schedule started")
	}

	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	var runErr error
	select {
	case err := <-errChan:
		runErr = cli.NewCommandError("run", err)
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down gracefully...")
	}
	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
	if err := m.Close(); err != nil {
		logger.Error("failed to close manager", "error", err)
	}

	if runErr == nil {
		fmt.Fprintln(out, "✓ Stopped")
	}
	return runErr
}

// newMux serves metrics and health endpoints for m.
func newMux(cfg *config.Config, m *manager.Manager, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	if cfg.Telemetry.Metrics.Enabled {
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	}
	if cfg.Telemetry.Health.Enabled {
		checker := health.New(0)
		checker.RegisterCheck("roots_loaded", health.UnitsLoaded(func() int { return len(m.Roots()) }, len(cfg.Units.Roots)))
		checker.RegisterCheck("last_reload", health.LastReload(m.LastError))
		health.Mount(mux, &cfg.Telemetry.Health, checker, Version, GitCommit, BuildDate)
	}
	return mux
}
