package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/manager"
	"mercator-hq/deepreload/pkg/reload"
	"mercator-hq/deepreload/pkg/telemetry/logging"
)

var reloadCmd = &cobra.Command{
	Use:   "reload [unit...]",
	Short: "Load the configured roots and reload units",
	Long: `Load the configured roots, then reload the named units together with
every unit they transitively import. Without arguments every root is
reloaded.

Examples:
  # Reload everything
  deepreload reload

  # Reload one package and its imports
  deepreload reload app.handlers

  # Machine readable report
  deepreload reload app --output json`,
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

// reportView is the rendered form of a reload.Report.
type reportView struct {
	ID       string        `json:"id"`
	Root     string        `json:"root"`
	Status   string        `json:"status"`
	Reloaded []string      `json:"reloaded"`
	Missing  []string      `json:"missing,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

func reportTable(reports []*reload.Report) *cli.Table {
	views := make([]reportView, 0, len(reports))
	t := &cli.Table{Columns: []string{"root", "status", "reloaded", "missing", "duration", "error"}}
	for _, r := range reports {
		v := reportView{
			ID:       r.ID,
			Root:     r.Root,
			Status:   r.Status(),
			Reloaded: r.Reloaded,
			Missing:  r.Missing,
			Duration: r.Duration,
			Error:    r.ErrorMessage(),
		}
		views = append(views, v)
		t.Values = append(t.Values, []string{
			v.Root,
			v.Status,
			strconv.Itoa(len(v.Reloaded)),
			strings.Join(v.Missing, " "),
			v.Duration.Round(time.Microsecond).String(),
			v.Error,
		})
	}
	t.Data = views
	return t
}

func runReload(cmd *cobra.Command, args []string) error {
	m, _, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := logging.WithTrigger(commandContext(cmd), manager.TriggerManual)
	if err := m.Load(ctx); err != nil {
		return cli.NewCommandError("reload", err)
	}

	var (
		reports []*reload.Report
		errs    manager.ErrorList
	)
	if len(args) == 0 {
		reports, err = m.ReloadAll(ctx)
		if err != nil {
			errs.Add(err)
		}
	} else {
		for _, name := range args {
			report, err := m.Reload(ctx, name)
			if report != nil {
				reports = append(reports, report)
			}
			if err != nil {
				errs.Add(err)
			}
		}
	}

	if err := render(cmd, reportTable(reports)); err != nil {
		return err
	}
	if errs.HasErrors() {
		return cli.NewCommandError("reload", errs.ToError())
	}
	return nil
}
