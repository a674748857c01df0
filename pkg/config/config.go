package config

import "time"

// Config is the root configuration structure for deepreload.
// It contains the unit search setup and every subsystem that can trigger
// or observe reloads.
type Config struct {
	// Units contains where unit sources are found and which units are
	// loaded at startup.
	Units UnitsConfig `yaml:"units"`

	// Watch contains file system watch configuration.
	Watch WatchConfig `yaml:"watch"`

	// Git contains configuration for units checked out from a Git repository.
	Git GitConfig `yaml:"git"`

	// Schedule contains cron schedules for periodic reloads and pruning.
	Schedule ScheduleConfig `yaml:"schedule"`

	// History contains reload history storage configuration.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UnitsConfig contains unit loading configuration.
type UnitsConfig struct {
	// SearchPaths are the directories searched for top-level units, in order.
	// When Git is enabled, relative paths are resolved inside the checkout.
	// Default: ["./units"]
	SearchPaths []string `yaml:"search_paths"`

	// Roots are the units imported at startup. Reloading everything means
	// reloading each root.
	Roots []string `yaml:"roots"`

	// Exclude lists units that are never reloaded. Leave unset for the
	// default exclusions (runtime, main, builtins); set to [] to exclude
	// nothing.
	Exclude []string `yaml:"exclude"`

	// MaxFileSize is the maximum unit source size in bytes.
	// Default: 1048576 (1MB)
	MaxFileSize int64 `yaml:"max_file_size"`

	// Extensions are the accepted source extensions, in lookup order.
	// Default: [".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`
}

// WatchConfig contains file system watch configuration.
type WatchConfig struct {
	// Enabled starts a watcher over the search paths that reloads the
	// affected roots when unit sources change.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is how long the watcher waits for events to settle before
	// triggering a reload.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// SkipHidden ignores files and directories starting with a dot.
	// Default: true
	SkipHidden bool `yaml:"skip_hidden"`
}

// GitConfig configures Git-backed unit sources.
type GitConfig struct {
	// Enabled determines if Git mode is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository URL (HTTPS or SSH).
	// Example: "https://github.com/company/units.git"
	Repository string `yaml:"repository"`

	// Branch to track (supports environment variable expansion).
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository that search paths are relative to.
	// Default: "" (root directory)
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Poll configures change detection.
	Poll GitPollConfig `yaml:"poll"`

	// Clone configures repository cloning.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh", "none"
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication (supports env vars).
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys (supports env vars).
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitPollConfig configures change detection.
type GitPollConfig struct {
	// Enabled determines if polling is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Interval between polls.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Timeout for Git operations.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// GitCloneConfig configures repository cloning.
type GitCloneConfig struct {
	// Depth for shallow clones (0 = full clone). Rollback needs at least
	// two commits of history.
	// Default: 0
	Depth int `yaml:"depth"`

	// LocalPath where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local repository before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// ScheduleConfig contains cron schedules. Expressions use the standard
// five-field syntax or descriptors such as "@every 5m".
type ScheduleConfig struct {
	// Enabled starts the scheduler.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Reload is when every root is reloaded. Empty disables it.
	Reload string `yaml:"reload"`

	// Prune is when history older than the retention period is deleted.
	// Default: "0 3 * * *"
	Prune string `yaml:"prune"`
}

// HistoryConfig contains reload history storage configuration.
type HistoryConfig struct {
	// Enabled records every reload.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver selects the storage backend.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// RetentionDays is how long history is kept by pruning (0 = forever).
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where the run command serves metrics and health
	// endpoints. Empty disables the HTTP listener.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "deepreload"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for reload duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "deepreload"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`
}
