package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/unit"
)

var listFlags struct {
	all bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the units in the module table",
	Long: `Load the configured roots and list every unit in the module table with
its generation and source file. Base units are hidden unless --all is set.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listFlags.all, "all", "a", false, "include base units")
}

func runList(cmd *cobra.Command, args []string) error {
	m, _, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Load(commandContext(cmd)); err != nil {
		return cli.NewCommandError("list", err)
	}

	units := make([]unit.Metadata, 0)
	for _, md := range m.Units() {
		if !listFlags.all && unit.IsBase(md.Name) {
			continue
		}
		units = append(units, md)
	}
	return render(cmd, unitTable(units))
}

func unitTable(units []unit.Metadata) *cli.Table {
	t := &cli.Table{
		Columns: []string{"unit", "package", "generation", "loaded_at", "deps", "file"},
		Data:    units,
	}
	for _, md := range units {
		t.Values = append(t.Values, []string{
			md.Name,
			strconv.FormatBool(md.IsPackage),
			strconv.FormatUint(md.Generation, 10),
			md.LoadedAt.Format(time.RFC3339),
			strings.Join(md.Deps, " "),
			md.File,
		})
	}
	return t
}
