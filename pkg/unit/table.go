package unit

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Table is the process-wide Module Table: a thread-safe registry mapping
// fully-qualified unit names to their currently loaded Unit.
type Table struct {
	mu    sync.RWMutex
	units map[string]*Unit
	// files maps a normalized source path to a unit name; sources is the
	// reverse, so a unit's old path is unmapped when it moves.
	files   map[string]string
	sources map[string]string
	version string
}

// NewTable creates an empty module table.
func NewTable() *Table {
	t := &Table{
		units:   make(map[string]*Unit),
		files:   make(map[string]string),
		sources: make(map[string]string),
	}
	t.updateVersion()
	return t
}

// Get returns the unit registered under name.
func (t *Table) Get(name string) (*Unit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.units[name]
	return u, ok
}

// Set registers u under name, replacing any previous entry.
func (t *Table) Set(name string, u *Unit) error {
	if u == nil {
		return &TableError{Name: name, Operation: "set", Message: "unit cannot be nil"}
	}
	if err := ValidateName(name); err != nil {
		return &TableError{Name: name, Operation: "set", Message: err.Error()}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.units[name] = u
	t.mapFile(name, u.File)
	t.updateVersion()
	return nil
}

// RegisterChild records child as the submodule short of the unit called
// parentName, so later dotted lookups through the parent succeed. The child
// is registered in the table under its own name as well.
func (t *Table) RegisterChild(parentName, short string, child *Unit) error {
	if child == nil {
		return &TableError{Name: parentName, Operation: "register_child", Message: "child cannot be nil"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.units[parentName]
	if !ok {
		return &TableError{Name: parentName, Operation: "register_child", Message: "parent not registered"}
	}
	if want := parentName + Separator + short; child.Name != want {
		return &TableError{
			Name:      parentName,
			Operation: "register_child",
			Message:   fmt.Sprintf("child %q does not match %q", child.Name, want),
		}
	}

	parent.setChild(short, child.Name)
	t.units[child.Name] = child
	t.mapFile(child.Name, child.File)
	t.updateVersion()
	return nil
}

// Child returns the registered child short of the unit called parentName.
func (t *Table) Child(parentName, short string) (*Unit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	parent, ok := t.units[parentName]
	if !ok {
		return nil, false
	}
	name, ok := parent.ChildName(short)
	if !ok {
		return nil, false
	}
	u, ok := t.units[name]
	return u, ok
}

// Remove deletes the unit registered under name.
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.units[name]; ok {
		t.mapFile(name, "")
		delete(t.units, name)
		t.updateVersion()
	}
}

// LookupFile returns the name of the unit last executed from file.
// Relative and absolute spellings of the same path match.
func (t *Table) LookupFile(file string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	name, ok := t.files[fileKey(file)]
	return name, ok
}

// mapFile points name at file, dropping whatever path name was mapped to
// before. An empty file only unmaps. Must be called with the write lock held.
func (t *Table) mapFile(name, file string) {
	if old, ok := t.sources[name]; ok {
		if t.files[old] == name {
			delete(t.files, old)
		}
		delete(t.sources, name)
	}
	if file == "" {
		return
	}
	key := fileKey(file)
	if prev, ok := t.files[key]; ok && prev != name {
		delete(t.sources, prev)
	}
	t.files[key] = name
	t.sources[name] = key
}

func fileKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Names returns all registered unit names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.units))
	for name := range t.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered units.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.units)
}

// Version returns a short hash over the registered names and their
// execution generations. It changes whenever any unit is (re)loaded.
func (t *Table) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.updateVersion()
	return t.version
}

// Metadata returns a summary of every registered unit, sorted by name.
func (t *Table) Metadata() []Metadata {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.units))
	for name := range t.units {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		u := t.units[name]
		exports, _ := u.Exports()
		out = append(out, Metadata{
			Name:       u.Name,
			IsPackage:  u.IsPackage,
			File:       u.File,
			Generation: u.Generation(),
			LoadedAt:   u.LoadedAt(),
			Exports:    exports,
			Children:   u.ChildNames(),
			Deps:       u.Deps(),
		})
	}
	return out
}

// updateVersion must be called with the write lock held.
func (t *Table) updateVersion() {
	h := sha256.New()

	names := make([]string, 0, len(t.units))
	for name := range t.units {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte(strconv.FormatUint(t.units[name].Generation(), 10)))
	}

	t.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// Metadata describes a registered unit.
type Metadata struct {
	Name       string    `json:"name"`
	IsPackage  bool      `json:"is_package"`
	File       string    `json:"file,omitempty"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at"`
	Exports    []string  `json:"exports,omitempty"`
	Children   []string  `json:"children,omitempty"`
	Deps       []string  `json:"deps,omitempty"`
}

// TableError represents a failed module table operation.
type TableError struct {
	Name      string
	Operation string
	Message   string
}

// Error implements the error interface.
func (e *TableError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("module table error for %q during %s: %s", e.Name, e.Operation, e.Message)
	}
	return fmt.Sprintf("module table error during %s: %s", e.Operation, e.Message)
}
