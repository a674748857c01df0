package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReload_All(t *testing.T) {
	setupUnits(t, sampleUnits, "app")

	cmd, out := testCommand("reload")
	if err := runReload(cmd, nil); err != nil {
		t.Fatalf("runReload() error = %v", err)
	}
	for _, want := range []string{"ROOT", "app", "success"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestReload_JSON(t *testing.T) {
	setupUnits(t, sampleUnits, "app")
	outputFormat = "json"

	cmd, out := testCommand("reload")
	if err := runReload(cmd, []string{"app"}); err != nil {
		t.Fatalf("runReload() error = %v", err)
	}

	var reports []reportView
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	r := reports[0]
	if r.Root != "app" || r.Status != "success" || r.ID == "" {
		t.Errorf("report = %+v", r)
	}
	found := false
	for _, name := range r.Reloaded {
		if name == "util" {
			found = true
		}
	}
	if !found {
		t.Errorf("util not reloaded: %v", r.Reloaded)
	}
}

func TestReload_Unknown(t *testing.T) {
	setupUnits(t, sampleUnits, "app")

	cmd, _ := testCommand("reload")
	if err := runReload(cmd, []string{"ghost"}); err == nil {
		t.Error("runReload(ghost) succeeded")
	}
}

func TestReload_BadOutputFormat(t *testing.T) {
	setupUnits(t, sampleUnits, "app")
	outputFormat = "junit"

	cmd, _ := testCommand("reload")
	if err := runReload(cmd, nil); err == nil {
		t.Error("runReload() accepted unknown output format")
	}
}
