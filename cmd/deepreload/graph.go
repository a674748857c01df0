package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/cli"
	"mercator-hq/deepreload/pkg/manager"
)

var graphCmd = &cobra.Command{
	Use:   "graph [root...]",
	Short: "Print the import graph of the loaded units",
	Long: `Load the configured roots and print the import graph reachable from
the given roots, or from every root when none are given.

Text output is an indented tree. Units already printed are marked with
(...) and imports that close a cycle with (cycle). JSON and CSV output
list every node with its imports and importers.`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

type graphView struct {
	Roots  []string   `json:"roots"`
	Nodes  []nodeView `json:"nodes"`
	Cycles [][]string `json:"cycles,omitempty"`
}

type nodeView struct {
	Name       string   `json:"name"`
	File       string   `json:"file,omitempty"`
	Generation uint64   `json:"generation"`
	Depth      int      `json:"depth"`
	Deps       []string `json:"deps,omitempty"`
	DependedBy []string `json:"depended_by,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	m, _, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Load(commandContext(cmd)); err != nil {
		return cli.NewCommandError("graph", err)
	}

	g := m.Graph(args...)
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		printTree(cmd.OutOrStdout(), g)
		return nil
	}
	return render(cmd, graphTable(g))
}

func graphTable(g *manager.Graph) *cli.Table {
	view := graphView{Roots: g.Roots, Cycles: g.Cycles()}
	t := &cli.Table{Columns: []string{"unit", "generation", "depth", "deps", "depended_by", "file"}}
	for _, name := range g.Names() {
		n := g.Nodes[name]
		view.Nodes = append(view.Nodes, nodeView{
			Name:       n.Name,
			File:       n.File,
			Generation: n.Generation,
			Depth:      n.Depth,
			Deps:       n.Deps,
			DependedBy: n.DependedBy,
		})
		t.Values = append(t.Values, []string{
			n.Name,
			strconv.FormatUint(n.Generation, 10),
			strconv.Itoa(n.Depth),
			strings.Join(n.Deps, " "),
			strings.Join(n.DependedBy, " "),
			n.File,
		})
	}
	t.Data = view
	return t
}

// printTree writes g as one indented tree per root.
func printTree(w io.Writer, g *manager.Graph) {
	printed := make(map[string]bool)
	var walk func(name string, depth int, path map[string]bool)
	walk = func(name string, depth int, path map[string]bool) {
		indent := strings.Repeat("  ", depth)
		n, ok := g.Nodes[name]
		switch {
		case !ok:
			fmt.Fprintf(w, "%s%s (not loaded)\n", indent, name)
			return
		case path[name]:
			fmt.Fprintf(w, "%s%s (cycle)\n", indent, name)
			return
		case printed[name]:
			fmt.Fprintf(w, "%s%s (...)\n", indent, name)
			return
		}
		printed[name] = true
		fmt.Fprintf(w, "%s%s [gen %d]\n", indent, name, n.Generation)

		path[name] = true
		for _, dep := range n.Deps {
			walk(dep, depth+1, path)
		}
		delete(path, name)
	}

	for _, root := range g.Roots {
		walk(root, 0, make(map[string]bool))
	}

	if cycles := g.Cycles(); len(cycles) > 0 {
		fmt.Fprintf(w, "\n%s:\n", plural(len(cycles), "cycle"))
		for _, c := range cycles {
			fmt.Fprintf(w, "  %s -> %s\n", strings.Join(c, " -> "), c[0])
		}
	}
}
