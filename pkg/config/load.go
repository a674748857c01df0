package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "DEEPRELOAD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, so omitted fields keep their
// default values. Unknown fields are rejected. An empty path yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention DEEPRELOAD_SECTION_FIELD (e.g., DEEPRELOAD_UNITS_SEARCH_PATHS).
// Environment variables always take precedence over file-based configuration.
// List values are comma-separated.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Units overrides
	envList("UNITS_SEARCH_PATHS", &cfg.Units.SearchPaths)
	envList("UNITS_ROOTS", &cfg.Units.Roots)
	if val, ok := os.LookupEnv(EnvPrefix + "UNITS_EXCLUDE"); ok {
		cfg.Units.Exclude = splitList(val)
	}
	if val := os.Getenv(EnvPrefix + "UNITS_MAX_FILE_SIZE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Units.MaxFileSize = i
		}
	}

	// Watch overrides
	envBool("WATCH_ENABLED", &cfg.Watch.Enabled)
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)

	// Git overrides
	envBool("GIT_ENABLED", &cfg.Git.Enabled)
	envString("GIT_REPOSITORY", &cfg.Git.Repository)
	envString("GIT_BRANCH", &cfg.Git.Branch)
	envString("GIT_PATH", &cfg.Git.Path)
	envString("GIT_AUTH_TYPE", &cfg.Git.Auth.Type)
	envString("GIT_AUTH_TOKEN", &cfg.Git.Auth.Token)
	envString("GIT_AUTH_SSH_KEY_PATH", &cfg.Git.Auth.SSHKeyPath)
	envBool("GIT_POLL_ENABLED", &cfg.Git.Poll.Enabled)
	envDuration("GIT_POLL_INTERVAL", &cfg.Git.Poll.Interval)
	envString("GIT_CLONE_LOCAL_PATH", &cfg.Git.Clone.LocalPath)

	// Schedule overrides
	envBool("SCHEDULE_ENABLED", &cfg.Schedule.Enabled)
	envString("SCHEDULE_RELOAD", &cfg.Schedule.Reload)
	envString("SCHEDULE_PRUNE", &cfg.Schedule.Prune)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_DRIVER", &cfg.History.Driver)
	envString("HISTORY_PATH", &cfg.History.Path)
	if val := os.Getenv(EnvPrefix + "HISTORY_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.History.RetentionDays = i
		}
	}

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envList(key string, dst *[]string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = splitList(val)
	}
}

// splitList splits a comma-separated list, dropping empty entries. The
// result is never nil.
func splitList(val string) []string {
	out := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
