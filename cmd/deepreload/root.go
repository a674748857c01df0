package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/config"
	"mercator-hq/deepreload/pkg/manager"
	"mercator-hq/deepreload/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "deepreload",
	Short: "Deepreload - recursive reloading of in-memory units",
	Long: `Deepreload loads a tree of units into an in-memory module table and
reloads a unit together with every unit it transitively imports.

Reloads can be triggered:
  - Manually with the reload command
  - By changes to unit sources on disk (watch mode)
  - By new commits on a tracked Git branch, with rollback on failure
  - On a cron schedule

Every reload is recorded in the reload history.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv)")
}

// loadConfig returns the global configuration, loading it from --config
// on first use.
func loadConfig() (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg, nil
	}
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.GetConfig(), nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := logging.FromConfig(&cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	lc.Writer = w
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// openManager builds a manager from the global configuration. Logs go to
// the command's stderr.
func openManager(cmd *cobra.Command, opts ...manager.Option) (*manager.Manager, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	opts = append([]manager.Option{manager.WithLogger(logger)}, opts...)
	m, err := manager.New(cfg, opts...)
	if err != nil {
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return m, cfg, nil
}

// render writes data to the command's stdout in the --output format.
func render(cmd *cobra.Command, data any) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func requireRoots(roots []string) error {
	if len(roots) == 0 {
		return cli.NewConfigError("units.roots", "no roots configured")
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
