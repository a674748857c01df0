package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/deepreload/pkg/config"
)

// setupUnits writes unit sources to a temp dir and installs a global
// configuration loading roots from it.
func setupUnits(t *testing.T, files map[string]string, roots ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for rel, src := range files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Units.SearchPaths = []string{dir}
	cfg.Units.Roots = roots
	cfg.History.Driver = "memory"
	config.SetConfig(cfg)

	outputFormat = "text"
	verbose = false
	t.Cleanup(func() {
		config.SetConfig(nil)
		outputFormat = "text"
	})
	return cfg
}

// testCommand returns a command whose stdout is captured.
func testCommand(name string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{Use: name}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	return cmd, &out
}

var sampleUnits = map[string]string{
	"app.yaml":             "imports: [util, {name: pkg, from: [sub]}]\nvalues: {name: app}\n",
	"util.yaml":            "values: {x: 1}\n",
	"pkg/package.yaml":     "exports: [sub]\n",
	"pkg/sub.yaml":         "values: {y: 2}\n",
	"unrelated/other.yaml": "not: [valid\n",
}
