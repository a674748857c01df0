package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/manager"
	"mercator-hq/deepreload/pkg/source/git"
	"mercator-hq/deepreload/pkg/telemetry/logging"
)

var syncFlags struct {
	commits int
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the unit repository and reload what changed",
	Long: `Load the configured roots from the Git checkout, pull the tracked branch
and reload the roots affected by the changed files. When the reload fails
the checkout is reset to the last commit that loaded cleanly.

Requires git.enabled in the configuration.

Examples:
  # Pull and reload
  deepreload sync

  # Show the last 5 commits after syncing
  deepreload sync --commits 5`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVar(&syncFlags.commits, "commits", 0, "also list this many recent commits")
}

func runSync(cmd *cobra.Command, args []string) error {
	m, _, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := logging.WithTrigger(commandContext(cmd), manager.TriggerGit)
	if err := m.Load(ctx); err != nil {
		return cli.NewCommandError("sync", err)
	}

	result, syncErr := m.Sync(ctx)
	if errors.Is(syncErr, manager.ErrGitDisabled) {
		return cli.NewConfigError("git.enabled", "git source is disabled")
	}
	if result != nil {
		if err := render(cmd, syncTable(result)); err != nil {
			return err
		}
	}

	if syncFlags.commits > 0 {
		commits, err := m.Commits(syncFlags.commits)
		if err != nil {
			return cli.NewCommandError("sync", err)
		}
		if err := render(cmd, commitTable(commits)); err != nil {
			return err
		}
	}

	if syncErr != nil {
		return cli.NewCommandError("sync", syncErr)
	}
	return nil
}

func syncTable(r *git.SyncResult) *cli.Table {
	state := "unchanged"
	switch {
	case r.RolledBack:
		state = "rolled back"
	case r.Skipped:
		state = "skipped"
	case r.FromSHA != r.ToSHA:
		state = "updated"
	}
	return &cli.Table{
		Columns: []string{"from", "to", "state", "changed"},
		Values: [][]string{{
			git.ShortSHA(r.FromSHA),
			git.ShortSHA(r.ToSHA),
			state,
			fmt.Sprint(len(r.ChangedFiles)),
		}},
		Data: r,
	}
}

func commitTable(commits []*git.CommitInfo) *cli.Table {
	t := &cli.Table{
		Columns: []string{"sha", "author", "date", "message"},
		Data:    commits,
	}
	for _, c := range commits {
		msg, _, _ := strings.Cut(c.Message, "\n")
		t.Values = append(t.Values, []string{c.Short(), c.Author, c.Timestamp.Format(time.RFC3339), msg})
	}
	return t
}
