// Package host is the process-wide context units are imported in. It owns
// the module table and the current import strategy, the operation every
// import statement executed by the loader is dispatched to.
package host

import (
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/deepreload/pkg/loader"
	"mercator-hq/deepreload/pkg/resolve"
	"mercator-hq/deepreload/pkg/unit"
)

// ErrStrategyInstalled is returned by Install while another strategy is
// installed.
var ErrStrategyInstalled = errors.New("import strategy already installed")

// Strategy performs import statements. Implementations must be comparable
// (pointer types) so the host can report which one is current.
type Strategy interface {
	unit.Importer
}

// Host dispatches imports to its current strategy. The default strategy
// serves names from the module table and loads only what is missing.
type Host struct {
	table  *unit.Table
	loader *loader.Loader
	logger *slog.Logger

	mu        sync.RWMutex
	def       Strategy
	current   Strategy
	installed bool
}

// New creates a host over table and l, registers the base units and binds
// l to the host so executed units import through the current strategy.
func New(table *unit.Table, l *loader.Loader, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := unit.RegisterBase(table); err != nil {
		return nil, err
	}

	h := &Host{
		table:  table,
		loader: l,
		logger: logger.With("component", "host"),
	}
	h.def = &cachedStrategy{resolver: resolve.New(table, h.fetchCached)}
	h.current = h.def
	l.Bind(h)
	return h, nil
}

// Import implements unit.Importer by dispatching to the current strategy.
func (h *Host) Import(name string, caller *unit.Scope, fromlist []string) (*unit.Unit, error) {
	return h.Current().Import(name, caller, fromlist)
}

// ImportUnit imports name from top level and returns the unit the full
// dotted name refers to, rather than its head.
func (h *Host) ImportUnit(name string) (*unit.Unit, error) {
	if err := unit.ValidateName(name); err != nil {
		return nil, err
	}
	head, err := h.Import(name, nil, nil)
	if err != nil {
		return nil, err
	}
	if head.Name == name {
		return head, nil
	}
	u, ok := h.table.Get(name)
	if !ok {
		return nil, &resolve.NotFoundError{Name: name}
	}
	return u, nil
}

// Install makes s the current strategy and returns a function restoring
// the previous one. Only one strategy can be installed at a time. The
// restore function is safe to call more than once.
func (h *Host) Install(s Strategy) (restore func(), err error) {
	if s == nil {
		return nil, errors.New("nil import strategy")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.installed {
		return nil, ErrStrategyInstalled
	}
	prev := h.current
	h.current = s
	h.installed = true

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.current = prev
			h.installed = false
		})
	}, nil
}

// Current returns the strategy imports are dispatched to.
func (h *Host) Current() Strategy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Installed reports whether a strategy other than the default is installed.
func (h *Host) Installed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.installed
}

// Default returns the cache-preferring strategy.
func (h *Host) Default() Strategy {
	return h.def
}

// Table returns the module table.
func (h *Host) Table() *unit.Table {
	return h.table
}

// Loader returns the unit loader.
func (h *Host) Loader() *loader.Loader {
	return h.loader
}

// fetchCached returns the registered unit for name, loading it only on a
// table miss.
func (h *Host) fetchCached(short, name string, parent *unit.Unit) (*unit.Unit, error) {
	if u, ok := h.table.Get(name); ok {
		return u, nil
	}

	handle, err := h.loader.FindChild(short, parent)
	if err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	u, err := h.loader.Execute(name, handle)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		if err := h.table.RegisterChild(parent.Name, short, u); err != nil {
			return nil, err
		}
	}
	h.logger.Debug("imported unit", "unit", name, "file", handle.File)
	return u, nil
}

type cachedStrategy struct {
	resolver *resolve.Resolver
}

func (s *cachedStrategy) Import(name string, caller *unit.Scope, fromlist []string) (*unit.Unit, error) {
	return s.resolver.Import(name, caller, fromlist)
}
