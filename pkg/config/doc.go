// Package config provides configuration management for deepreload.
//
// Configuration is read from a YAML file, layered over built-in defaults,
// and then overridden from the environment:
//
//  1. Default values (Default and ApplyDefaults in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides (DEEPRELOAD_SECTION_FIELD)
//  4. Validation, which collects every FieldError before failing
//
// For example DEEPRELOAD_UNITS_ROOTS=app,jobs overrides units.roots and
// DEEPRELOAD_TELEMETRY_LOGGING_LEVEL=debug overrides
// telemetry.logging.level.
//
// # Example configuration
//
//	units:
//	  search_paths: [./units]
//	  roots: [app]
//	watch:
//	  enabled: true
//	  debounce: 200ms
//	history:
//	  driver: sqlite
//	  path: data/history.db
//	schedule:
//	  enabled: true
//	  reload: "@every 10m"
//
// # Singleton
//
// Commands that need application-wide access call Initialize once and then
// GetConfig. Library code takes a *Config explicitly.
package config
