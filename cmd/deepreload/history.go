package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/history"
)

var historyFlags struct {
	root   string
	status string
	since  time.Duration
	limit  int
	offset int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the reload history",
	Long: `List recorded reloads, newest first.

Examples:
  # Failed reloads in the last day
  deepreload history --status failure --since 24h

  # Everything recorded for one root, as CSV
  deepreload history --root app --output csv`,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history older than the retention period",
	Long: `Delete history records older than history.retention_days. A retention
of zero keeps everything.`,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().StringVar(&historyFlags.root, "root", "", "only reloads of this root")
	historyCmd.Flags().StringVar(&historyFlags.status, "status", "", "only reloads with this status (success, failure)")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only reloads started within this duration")
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of records")
	historyCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "records to skip")
}

func runHistory(cmd *cobra.Command, args []string) error {
	switch historyFlags.status {
	case "", "success", "failure":
	default:
		return cli.NewConfigError("status", fmt.Sprintf("unknown status %q", historyFlags.status))
	}

	m, _, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	q := history.Query{
		Root:   historyFlags.root,
		Status: historyFlags.status,
		Limit:  historyFlags.limit,
		Offset: historyFlags.offset,
	}
	if historyFlags.since > 0 {
		q.Since = time.Now().Add(-historyFlags.since)
	}

	records, err := m.History(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return render(cmd, recordTable(records))
}

func recordTable(records []*history.Record) *cli.Table {
	t := &cli.Table{
		Columns: []string{"started_at", "root", "trigger", "status", "reloaded", "duration", "error"},
		Data:    records,
	}
	if records == nil {
		t.Data = []*history.Record{}
	}
	for _, r := range records {
		t.Values = append(t.Values, []string{
			r.StartedAt.Format(time.RFC3339),
			r.Root,
			r.Trigger,
			r.Status,
			strconv.Itoa(len(r.Reloaded)),
			r.Duration.Round(time.Microsecond).String(),
			strings.ReplaceAll(r.Error, "\n", " "),
		})
	}
	return t
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	n, err := m.PruneHistory(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	if cfg.History.RetentionDays <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "retention disabled, nothing pruned")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ pruned %s older than %d days\n", plural(int(n), "record"), cfg.History.RetentionDays)
	return nil
}
