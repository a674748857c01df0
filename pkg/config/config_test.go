package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Units.SearchPaths, []string{DefaultSearchPath}) {
		t.Errorf("SearchPaths = %v", cfg.Units.SearchPaths)
	}
	if cfg.Units.Exclude != nil {
		t.Errorf("Exclude = %v, want nil (host defaults)", cfg.Units.Exclude)
	}
	if !cfg.Watch.SkipHidden || !cfg.History.Enabled || !cfg.Telemetry.Metrics.Enabled {
		t.Error("boolean defaults not applied")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("tracing enabled by default")
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)
	if !reflect.DeepEqual(first, *cfg) {
		t.Error("ApplyDefaults is not idempotent")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
units:
  search_paths: [./a, ./b]
  roots: [app, jobs.nightly]
  exclude: []
watch:
  enabled: true
  debounce: 250ms
  skip_hidden: false
history:
  driver: sqlite3
  path: /tmp/h.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Units.SearchPaths, []string{"./a", "./b"}) {
		t.Errorf("SearchPaths = %v", cfg.Units.SearchPaths)
	}
	if !reflect.DeepEqual(cfg.Units.Roots, []string{"app", "jobs.nightly"}) {
		t.Errorf("Roots = %v", cfg.Units.Roots)
	}
	if cfg.Units.Exclude == nil || len(cfg.Units.Exclude) != 0 {
		t.Errorf("Exclude = %#v, want empty non-nil", cfg.Units.Exclude)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 250*time.Millisecond || cfg.Watch.SkipHidden {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
	if cfg.History.Driver != "sqlite3" || !cfg.History.Enabled {
		t.Errorf("History = %+v", cfg.History)
	}
	// Untouched sections keep defaults.
	if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
		t.Errorf("Logging.Level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "units:\n  roots_typo: [a]\n", "failed to parse"},
		{"malformed", "units: [\n", "failed to parse"},
		{"invalid root", "units:\n  roots: [\"a..b\"]\n", "units.roots[0]"},
		{"invalid driver", "history:\n  driver: postgres\n", "history.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
}

func TestLoadConfig_EmptyPathAndFile(t *testing.T) {
	for _, path := range []string{"", writeConfig(t, "\n")} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%q) error = %v", path, err)
		}
		if !reflect.DeepEqual(cfg, Default()) {
			t.Errorf("LoadConfig(%q) differs from Default()", path)
		}
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("DEEPRELOAD_UNITS_ROOTS", "app, jobs ,")
	t.Setenv("DEEPRELOAD_UNITS_EXCLUDE", "")
	t.Setenv("DEEPRELOAD_WATCH_ENABLED", "true")
	t.Setenv("DEEPRELOAD_WATCH_DEBOUNCE", "1s")
	t.Setenv("DEEPRELOAD_HISTORY_DRIVER", "memory")
	t.Setenv("DEEPRELOAD_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("DEEPRELOAD_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("DEEPRELOAD_GIT_POLL_INTERVAL", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Units.Roots, []string{"app", "jobs"}) {
		t.Errorf("Roots = %v", cfg.Units.Roots)
	}
	if cfg.Units.Exclude == nil || len(cfg.Units.Exclude) != 0 {
		t.Errorf("Exclude = %#v, want empty non-nil", cfg.Units.Exclude)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != time.Second {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
	if cfg.History.Driver != "memory" {
		t.Errorf("History.Driver = %q", cfg.History.Driver)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Git.Poll.Interval != DefaultGitPollInterval {
		t.Errorf("invalid duration override applied: %v", cfg.Git.Poll.Interval)
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("DEEPRELOAD_TELEMETRY_LOGGING_FORMAT", "xml")

	_, err := LoadConfigWithEnvOverrides("")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Errors[0].Field != "telemetry.logging.format" {
		t.Errorf("Field = %q", verr.Errors[0].Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantFields []string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name: "duplicate roots",
			modify: func(c *Config) {
				c.Units.Roots = []string{"app", "app"}
			},
			wantFields: []string{"units.roots[1]"},
		},
		{
			name: "bad extension and size",
			modify: func(c *Config) {
				c.Units.Extensions = []string{"yaml"}
				c.Units.MaxFileSize = -1
			},
			wantFields: []string{"units.max_file_size", "units.extensions[0]"},
		},
		{
			name: "git without repository",
			modify: func(c *Config) {
				c.Git.Enabled = true
			},
			wantFields: []string{"git.repository"},
		},
		{
			name: "git token auth without token",
			modify: func(c *Config) {
				c.Git.Enabled = true
				c.Git.Repository = "https://example.com/units.git"
				c.Git.Auth.Type = "token"
			},
			wantFields: []string{"git.auth.token"},
		},
		{
			name: "invalid cron",
			modify: func(c *Config) {
				c.Schedule.Enabled = true
				c.Schedule.Reload = "every now and then"
			},
			wantFields: []string{"schedule.reload"},
		},
		{
			name: "cron descriptor",
			modify: func(c *Config) {
				c.Schedule.Enabled = true
				c.Schedule.Reload = "@every 5m"
			},
		},
		{
			name: "tracing without endpoint",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.SampleRatio = 2
			},
			wantFields: []string{"telemetry.tracing.endpoint", "telemetry.tracing.sample_ratio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			var got []string
			for _, fe := range verr.Errors {
				got = append(got, fe.Field)
			}
			if !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if one.Error() != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", one.Error())
	}
	two := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(two.Error(), "2 errors") {
		t.Errorf("Error() = %q", two.Error())
	}
}

func TestBuilder(t *testing.T) {
	cfg := NewTestConfig().
		WithSearchPaths("/units").
		WithRoots("a", "b").
		WithWatch(time.Second).
		WithLogLevel("debug").
		Build()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.History.Driver != "memory" || !cfg.Watch.Enabled {
		t.Errorf("builder config = %+v", cfg)
	}
}

func TestSingleton(t *testing.T) {
	path := writeConfig(t, "units:\n  roots: [app]\n")

	SetConfig(nil)
	if GetConfig() != nil {
		t.Fatal("GetConfig() != nil after SetConfig(nil)")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustGetConfig() did not panic")
			}
		}()
		MustGetConfig()
	}()

	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if cfg := GetConfig(); cfg == nil || cfg.Units.Roots[0] != "app" {
		t.Fatalf("GetConfig() = %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("units:\n  roots: [other]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if MustGetConfig().Units.Roots[0] != "other" {
		t.Error("ReloadConfig() did not replace the configuration")
	}

	if err := os.WriteFile(path, []byte("history:\n  driver: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReloadConfig(); err == nil {
		t.Error("ReloadConfig() accepted an invalid file")
	}
	if MustGetConfig().Units.Roots[0] != "other" {
		t.Error("failed reload replaced the configuration")
	}
}
