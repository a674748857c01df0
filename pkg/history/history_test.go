package history

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mercator-hq/deepreload/pkg/config"
	"mercator-hq/deepreload/pkg/reload"
)

// stores returns every backend that can be opened in this environment.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore()}

	for _, driver := range []string{DriverModernc, DriverMattn} {
		s, err := NewSQLiteStore(SQLiteConfig{
			Driver:      driver,
			Path:        filepath.Join(t.TempDir(), "history.db"),
			WALMode:     true,
			BusyTimeout: time.Second,
		})
		if err != nil {
			if driver == DriverMattn {
				// go-sqlite3 needs cgo.
				t.Logf("skipping %s: %v", driver, err)
				continue
			}
			t.Fatalf("NewSQLiteStore(%s) error = %v", driver, err)
		}
		out[driver] = s
	}
	for _, s := range out {
		t.Cleanup(func() { s.Close() })
	}
	return out
}

func record(root, status string, startedAt time.Time) *Record {
	r := &Record{
		ReloadID:  "reload-" + root,
		Root:      root,
		Trigger:   "cli",
		Status:    status,
		Reloaded:  []string{root, "util"},
		StartedAt: startedAt,
		Duration:  15 * time.Millisecond,
	}
	if status == "failure" {
		r.Error = "boom"
		r.Missing = []string{"ghost"}
	}
	return r
}

func TestStore_RecordGet(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := record("app", "failure", base)
			if err := s.Record(ctx, r); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			if r.ID == "" {
				t.Fatal("Record() did not assign an ID")
			}

			got, err := s.Get(ctx, r.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.StartedAt.Equal(base) {
				t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
			}
			got.StartedAt = r.StartedAt
			if !reflect.DeepEqual(got, r) {
				t.Errorf("Get() = %+v, want %+v", got, r)
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ListPrune(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			inputs := []*Record{
				record("app", "success", base),
				record("jobs", "success", base.Add(time.Hour)),
				record("app", "failure", base.Add(2*time.Hour)),
				record("app", "success", base.Add(3*time.Hour)),
			}
			for _, r := range inputs {
				if err := s.Record(ctx, r); err != nil {
					t.Fatalf("Record() error = %v", err)
				}
			}

			tests := []struct {
				name string
				q    Query
				want []*Record
			}{
				{"all newest first", Query{}, []*Record{inputs[3], inputs[2], inputs[1], inputs[0]}},
				{"by root", Query{Root: "app"}, []*Record{inputs[3], inputs[2], inputs[0]}},
				{"by status", Query{Status: "failure"}, []*Record{inputs[2]}},
				{"since", Query{Since: base.Add(90 * time.Minute)}, []*Record{inputs[3], inputs[2]}},
				{"paged", Query{Limit: 2, Offset: 1}, []*Record{inputs[2], inputs[1]}},
				{"past end", Query{Offset: 10}, nil},
			}
			for _, tt := range tests {
				got, err := s.List(ctx, tt.q)
				if err != nil {
					t.Fatalf("%s: List() error = %v", tt.name, err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("%s: List() returned %d records, want %d", tt.name, len(got), len(tt.want))
				}
				for i := range got {
					if got[i].ID != tt.want[i].ID {
						t.Errorf("%s: record %d = %s, want %s", tt.name, i, got[i].Root, tt.want[i].Root)
					}
				}
			}

			n, err := s.Prune(ctx, base.Add(150*time.Minute))
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if n != 3 {
				t.Errorf("Prune() deleted %d, want 3", n)
			}
			left, _ := s.List(ctx, Query{})
			if len(left) != 1 || left[0].ID != inputs[3].ID {
				t.Errorf("records after prune = %v", left)
			}
		})
	}
}

func TestNewRecord(t *testing.T) {
	report := &reload.Report{
		ID:        "r-1",
		Root:      "app",
		Reloaded:  []string{"app", "util"},
		StartedAt: time.Now(),
		Duration:  time.Second,
		Err:       errors.New("boom"),
	}

	r := NewRecord(report, "watch", "abc")
	if r.ID == "" || r.ReloadID != "r-1" || r.Trigger != "watch" || r.TableVersion != "abc" {
		t.Errorf("NewRecord() = %+v", r)
	}
	if r.Status != "failure" || r.Error != "boom" {
		t.Errorf("status = %q error = %q", r.Status, r.Error)
	}
	report.Reloaded[0] = "changed"
	if r.Reloaded[0] != "app" {
		t.Error("NewRecord() shares the report's slice")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(&config.HistoryConfig{Enabled: false, Driver: "sqlite"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(disabled) = %T, want *MemoryStore", s)
	}

	s, err = Open(&config.HistoryConfig{
		Enabled: true,
		Driver:  DriverModernc,
		Path:    filepath.Join(t.TempDir(), "nested", "h.db"),
	}, nil)
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLiteStore", s)
	}

	if _, err := Open(&config.HistoryConfig{Enabled: true, Driver: "postgres"}, nil); err == nil {
		t.Error("Open(postgres) error = nil")
	}
}
