package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/deepreload/pkg/history"
)

// commitUnits writes files into the repository at dir and commits them.
func commitUnits(t *testing.T, repo *gogit.Repository, dir string, files map[string]string) {
	t.Helper()

	writeUnits(t, dir, files)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for rel := range files {
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("failed to add %s: %v", rel, err)
		}
	}
	_, err = wt.Commit("update units", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestManager_GitSync(t *testing.T) {
	upstream := t.TempDir()
	repo, err := gogit.PlainInit(upstream, false)
	if err != nil {
		t.Fatal(err)
	}
	commitUnits(t, repo, upstream, map[string]string{"units/app.yaml": "values: {v: 1}\n"})

	cfg := testConfig("units", "app")
	cfg.Git.Enabled = true
	cfg.Git.Repository = upstream
	cfg.Git.Branch = "master"
	cfg.Git.Poll.Timeout = 30 * time.Second
	cfg.Git.Clone.LocalPath = filepath.Join(t.TempDir(), "checkout")
	m := newManager(t, cfg)
	ctx := context.Background()

	if err := m.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Git.Clone.LocalPath, "units", "app.yaml")); err != nil {
		t.Fatalf("checkout missing app.yaml: %v", err)
	}

	commitUnits(t, repo, upstream, map[string]string{
		"units/app.yaml":  "imports: [util]\n",
		"units/util.yaml": "values: {x: 1}\n",
	})
	result, err := m.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(result.ChangedFiles) != 2 || result.RolledBack {
		t.Errorf("Sync() = %+v", result)
	}
	if _, ok := m.Table().Get("util"); !ok {
		t.Error("util not loaded after sync")
	}

	commitUnits(t, repo, upstream, map[string]string{"units/app.yaml": "imports: [ghost]\n"})
	result, err = m.Sync(ctx)
	if err == nil {
		t.Fatal("Sync() of a broken commit succeeded")
	}
	if !result.RolledBack {
		t.Errorf("Sync() = %+v, want rolled back", result)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Git.Clone.LocalPath, "units", "app.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "imports: [util]\n" {
		t.Errorf("app.yaml after rollback = %q", data)
	}

	records, err := m.History(ctx, history.Query{})
	if err != nil {
		t.Fatal(err)
	}
	// Newest first: the reload after rollback, the rejected one, the first sync.
	if len(records) != 3 {
		t.Fatalf("history has %d records, want 3", len(records))
	}
	if records[0].Status != "success" || records[1].Status != "failure" || records[0].Trigger != TriggerGit {
		t.Errorf("records = %+v, %+v", records[0], records[1])
	}

	commits, err := m.Commits(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Errorf("Commits() = %d, want 2 after rollback", len(commits))
	}

	n, err := testutil.GatherAndCount(m.Metrics().Registry(), "deepreload_git_syncs_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("git_syncs_total has %d series, want success and rolled_back", n)
	}
}
