package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/manager"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check unit sources without executing them",
	Long: `Parse every unit statically reachable from the configured roots and
report sources that fail to parse, imports that resolve to no unit and
exported names that do not exist. Nothing is executed.

Exit codes:
  0 - No issues
  1 - Issues found or lint failed
  2 - Configuration error

Examples:
  # Lint with the default configuration
  deepreload lint

  # Lint as JSON
  deepreload lint --config deepreload.yaml --output json`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	m, cfg, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := requireRoots(cfg.Units.Roots); err != nil {
		return err
	}

	issues, err := m.Lint(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		out := cmd.OutOrStdout()
		for _, issue := range issues {
			fmt.Fprintln(out, issue.String())
		}
		if len(issues) == 0 {
			fmt.Fprintf(out, "✓ %s checked, no issues\n", plural(len(cfg.Units.Roots), "root"))
		}
	} else if err := render(cmd, issueTable(issues)); err != nil {
		return err
	}

	if len(issues) > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%s found", plural(len(issues), "issue")))
	}
	return nil
}

func issueTable(issues []manager.Issue) *cli.Table {
	t := &cli.Table{
		Columns: []string{"unit", "file", "import", "message"},
		Data:    issues,
	}
	if issues == nil {
		t.Data = []manager.Issue{}
	}
	for _, i := range issues {
		t.Values = append(t.Values, []string{i.Unit, i.File, i.Import, i.Message})
	}
	return t
}
