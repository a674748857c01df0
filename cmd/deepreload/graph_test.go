package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGraph_Text(t *testing.T) {
	setupUnits(t, sampleUnits, "app")

	cmd, out := testCommand("graph")
	if err := runGraph(cmd, nil); err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"app [gen ", "\n  util [gen ", "\n  pkg [gen "} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "cycle") {
		t.Errorf("unexpected cycle:\n%s", got)
	}
}

func TestGraph_Cycle(t *testing.T) {
	setupUnits(t, map[string]string{
		"a.yaml": "imports: [b]\n",
		"b.yaml": "imports: [a]\n",
	}, "a")

	cmd, out := testCommand("graph")
	if err := runGraph(cmd, nil); err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"    a (cycle)", "1 cycle:", "a -> b -> a"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestGraph_JSON(t *testing.T) {
	setupUnits(t, sampleUnits, "app")
	outputFormat = "json"

	cmd, out := testCommand("graph")
	if err := runGraph(cmd, []string{"app"}); err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}

	var view graphView
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if len(view.Roots) != 1 || view.Roots[0] != "app" {
		t.Errorf("roots = %v", view.Roots)
	}

	nodes := make(map[string]nodeView)
	for _, n := range view.Nodes {
		nodes[n.Name] = n
	}
	if nodes["app"].Depth != 0 || nodes["util"].Depth != 1 {
		t.Errorf("nodes = %+v", view.Nodes)
	}
	if by := nodes["util"].DependedBy; len(by) != 1 || by[0] != "app" {
		t.Errorf("util depended_by = %v", by)
	}
}
