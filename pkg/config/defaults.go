package config

import "time"

// Default values for configuration fields.
const (
	// Units defaults
	DefaultSearchPath  = "./units"
	DefaultMaxFileSize = int64(1048576) // 1MB

	// Watch defaults
	DefaultWatchEnabled    = false
	DefaultWatchDebounce   = 100 * time.Millisecond
	DefaultWatchSkipHidden = true

	// Git defaults
	DefaultGitBranch       = "main"
	DefaultGitAuthType     = "none"
	DefaultGitPollEnabled  = true
	DefaultGitPollInterval = 30 * time.Second
	DefaultGitPollTimeout  = 10 * time.Second

	// Schedule defaults
	DefaultSchedulePrune = "0 3 * * *"

	// History defaults
	DefaultHistoryEnabled       = true
	DefaultHistoryDriver        = "sqlite"
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryRetentionDays = 30
	DefaultHistoryMaxOpenConns  = 4
	DefaultHistoryWALMode       = true
	DefaultHistoryBusyTimeout   = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "deepreload"
	DefaultTracingEnabled       = false
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingServiceName   = "deepreload"
	DefaultTracingOTLPInsecure  = true
	DefaultTracingOTLPTimeout   = 10 * time.Second
	DefaultHealthEnabled        = true
	DefaultHealthLivenessPath   = "/health"
	DefaultHealthReadinessPath  = "/ready"
)

// DefaultExtensions are the unit source extensions accepted by default.
var DefaultExtensions = []string{".yaml", ".yml"}

// DefaultDurationBuckets are the reload duration histogram buckets.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a configuration with every field at its default value,
// including the boolean switches ApplyDefaults cannot infer from a zero
// value. File contents are decoded on top of it.
func Default() *Config {
	cfg := &Config{
		Watch: WatchConfig{
			Enabled:    DefaultWatchEnabled,
			SkipHidden: DefaultWatchSkipHidden,
		},
		Git: GitConfig{
			Poll: GitPollConfig{Enabled: DefaultGitPollEnabled},
		},
		History: HistoryConfig{
			Enabled: DefaultHistoryEnabled,
			WALMode: DefaultHistoryWALMode,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
				OTLP:    OTLPConfig{Insecure: DefaultTracingOTLPInsecure},
			},
			Health: HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Units defaults
	if len(cfg.Units.SearchPaths) == 0 {
		cfg.Units.SearchPaths = []string{DefaultSearchPath}
	}
	if cfg.Units.MaxFileSize == 0 {
		cfg.Units.MaxFileSize = DefaultMaxFileSize
	}
	if len(cfg.Units.Extensions) == 0 {
		cfg.Units.Extensions = append([]string(nil), DefaultExtensions...)
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	// Git defaults
	if cfg.Git.Branch == "" {
		cfg.Git.Branch = DefaultGitBranch
	}
	if cfg.Git.Auth.Type == "" {
		cfg.Git.Auth.Type = DefaultGitAuthType
	}
	if cfg.Git.Poll.Interval == 0 {
		cfg.Git.Poll.Interval = DefaultGitPollInterval
	}
	if cfg.Git.Poll.Timeout == 0 {
		cfg.Git.Poll.Timeout = DefaultGitPollTimeout
	}

	// Schedule defaults
	if cfg.Schedule.Prune == "" {
		cfg.Schedule.Prune = DefaultSchedulePrune
	}

	// History defaults
	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.MaxOpenConns == 0 {
		cfg.History.MaxOpenConns = DefaultHistoryMaxOpenConns
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadinessPath
	}
}
