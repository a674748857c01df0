package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "units.roots").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// cronParser accepts the same expressions as the scheduler.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateUnits(&cfg.Units)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateGit(&cfg.Git)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateUnits(cfg *UnitsConfig) []FieldError {
	var errs []FieldError

	if len(cfg.SearchPaths) == 0 {
		errs = append(errs, FieldError{Field: "units.search_paths", Message: "at least one search path is required"})
	}
	for i, p := range cfg.SearchPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("units.search_paths[%d]", i), Message: "search path cannot be empty"})
		}
	}

	seen := make(map[string]bool)
	for i, root := range cfg.Roots {
		if !validUnitName(root) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("units.roots[%d]", i),
				Message: fmt.Sprintf("invalid unit name %q", root),
			})
			continue
		}
		if seen[root] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("units.roots[%d]", i),
				Message: fmt.Sprintf("duplicate root %q", root),
			})
		}
		seen[root] = true
	}
	for i, name := range cfg.Exclude {
		if !validUnitName(name) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("units.exclude[%d]", i),
				Message: fmt.Sprintf("invalid unit name %q", name),
			})
		}
	}

	if cfg.MaxFileSize <= 0 {
		errs = append(errs, FieldError{Field: "units.max_file_size", Message: "max file size must be positive"})
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("units.extensions[%d]", i),
				Message: fmt.Sprintf("invalid extension %q: must start with '.'", ext),
			})
		}
	}
	return errs
}

// validUnitName mirrors unit.ValidateName without importing the unit package.
func validUnitName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || strings.ContainsAny(seg, `/\ `) {
			return false
		}
	}
	return true
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "watch.debounce", Message: "debounce cannot be negative"})
	}
	return errs
}

func validateGit(cfg *GitConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}

	if cfg.Repository == "" {
		errs = append(errs, FieldError{Field: "git.repository", Message: "repository is required when git is enabled"})
	}
	if cfg.Branch == "" {
		errs = append(errs, FieldError{Field: "git.branch", Message: "branch is required when git is enabled"})
	}

	switch cfg.Auth.Type {
	case "none":
	case "token":
		if cfg.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "git.auth.token", Message: "token is required when auth type is 'token'"})
		}
	case "ssh":
		if cfg.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "git.auth.ssh_key_path", Message: "ssh key path is required when auth type is 'ssh'"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Auth.Type),
		})
	}

	if cfg.Poll.Enabled && cfg.Poll.Interval < time.Second {
		errs = append(errs, FieldError{Field: "git.poll.interval", Message: "poll interval must be at least 1s"})
	}
	if cfg.Clone.Depth < 0 {
		errs = append(errs, FieldError{Field: "git.clone.depth", Message: "clone depth cannot be negative"})
	}
	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}

	if cfg.Reload != "" {
		if _, err := cronParser.Parse(cfg.Reload); err != nil {
			errs = append(errs, FieldError{Field: "schedule.reload", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if cfg.Prune != "" {
		if _, err := cronParser.Parse(cfg.Prune); err != nil {
			errs = append(errs, FieldError{Field: "schedule.prune", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true, "memory": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "history.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite', 'sqlite3', or 'memory'", cfg.Driver),
		})
	}
	if cfg.Enabled && cfg.Driver != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "history.path", Message: "path is required for sqlite history"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "history.retention_days", Message: "retention days cannot be negative"})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: "history.max_open_conns", Message: "max open connections cannot be negative"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
		}
		if cfg.Metrics.Namespace == "" {
			errs = append(errs, FieldError{Field: "telemetry.metrics.namespace", Message: "namespace is required when metrics are enabled"})
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "tracing endpoint is required when tracing is enabled"})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}

	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "liveness path must start with '/'"})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "readiness path must start with '/'"})
		}
	}
	return errs
}
