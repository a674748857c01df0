package history

import (
	"fmt"
	"log/slog"

	"mercator-hq/deepreload/pkg/config"
)

// Open returns the store selected by cfg. A disabled history or the
// "memory" driver gives a MemoryStore.
func Open(cfg *config.HistoryConfig, logger *slog.Logger) (Store, error) {
	if !cfg.Enabled || cfg.Driver == "memory" {
		return NewMemoryStore(), nil
	}

	switch cfg.Driver {
	case DriverModernc, DriverMattn:
		return NewSQLiteStore(SQLiteConfig{
			Driver:       cfg.Driver,
			Path:         cfg.Path,
			MaxOpenConns: cfg.MaxOpenConns,
			WALMode:      cfg.WALMode,
			BusyTimeout:  cfg.BusyTimeout,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}
}
