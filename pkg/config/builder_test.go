package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a new ConfigBuilder with a valid default
// configuration and an in-memory history store.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.History.Driver = "memory"
	cfg.Units.Roots = []string{"app"}
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithSearchPaths sets the unit search paths.
func (b *ConfigBuilder) WithSearchPaths(paths ...string) *ConfigBuilder {
	b.cfg.Units.SearchPaths = paths
	return b
}

// WithRoots sets the root units.
func (b *ConfigBuilder) WithRoots(roots ...string) *ConfigBuilder {
	b.cfg.Units.Roots = roots
	return b
}

// WithWatch enables watching with the given debounce.
func (b *ConfigBuilder) WithWatch(debounce time.Duration) *ConfigBuilder {
	b.cfg.Watch.Enabled = true
	b.cfg.Watch.Debounce = debounce
	return b
}

// WithGit enables Git mode for repository.
func (b *ConfigBuilder) WithGit(repository string) *ConfigBuilder {
	b.cfg.Git.Enabled = true
	b.cfg.Git.Repository = repository
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
