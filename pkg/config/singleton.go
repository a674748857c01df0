package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// globalPath is the file globalConfig was loaded from.
	globalPath string

	// configMutex protects access to globalConfig and globalPath.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from path with environment variable
// overrides and stores it as the global configuration. Subsequent calls
// are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		store(cfg, path)
	})

	return initErr
}

// GetConfig returns the global configuration instance, or nil if
// Initialize has not succeeded. Safe for concurrent use.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the global configuration. Intended for tests.
func SetConfig(cfg *Config) {
	store(cfg, "")
}

// ReloadConfig reloads the global configuration from the file it was
// initialized from. The existing configuration is kept when loading or
// validation fails.
func ReloadConfig() error {
	configMutex.RLock()
	path := globalPath
	configMutex.RUnlock()

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	store(cfg, path)
	return nil
}

// MustGetConfig returns the global configuration instance and panics if it
// has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

func store(cfg *Config, path string) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
	globalPath = path
}
