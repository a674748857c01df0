package unit

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Separator splits the segments of a fully-qualified unit name.
const Separator = "."

// Unit is a named, loaded compilation artifact.
//
// A Unit is created by the loader the first time its name is executed and
// reused on every later execution, so references held by other components
// stay valid across reloads. Relationships to other units (children,
// import bindings, dependencies) are stored by fully-qualified name and
// resolved through the Table.
type Unit struct {
	// Name is the fully-qualified, dot-separated unit name.
	Name string

	// IsPackage reports whether the unit can contain child units.
	IsPackage bool

	// Path is the search-path sequence for child units. Only set for packages.
	Path []string

	// File is the source the unit was last executed from.
	File string

	mu         sync.RWMutex
	exports    []string
	imports    []Import
	values     map[string]any
	bindings   map[string]string
	children   map[string]string
	deps       []string
	generation uint64
	loadedAt   time.Time
}

// New creates an empty unit record for name.
func New(name string) *Unit {
	return &Unit{
		Name:     name,
		values:   make(map[string]any),
		bindings: make(map[string]string),
		children: make(map[string]string),
	}
}

// Scope returns the calling context used when this unit performs imports.
func (u *Unit) Scope() *Scope {
	s := &Scope{Name: u.Name}
	if u.IsPackage {
		s.Path = append([]string(nil), u.Path...)
	}
	return s
}

// Leaf returns the last segment of the unit name.
func (u *Unit) Leaf() string {
	if i := strings.LastIndex(u.Name, Separator); i >= 0 {
		return u.Name[i+1:]
	}
	return u.Name
}

// Reset prepares the unit for a fresh execution of doc. Children survive
// a reset: submodules registered earlier stay reachable from the package,
// the same way attributes of a re-executed namespace do.
func (u *Unit) Reset(doc *Document) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.exports = nil
	if doc.Exports != nil {
		u.exports = append([]string{}, doc.Exports...)
	}
	u.imports = append([]Import(nil), doc.Imports...)
	u.values = make(map[string]any, len(doc.Values))
	for k, v := range doc.Values {
		u.values[k] = v
	}
	u.bindings = make(map[string]string)
	u.deps = nil
	u.generation++
	u.loadedAt = time.Now()
}

// Exports returns the declared export list and whether one was declared.
func (u *Unit) Exports() ([]string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.exports == nil {
		return nil, false
	}
	return append([]string(nil), u.exports...), true
}

// Imports returns the top-level import statements in source order.
func (u *Unit) Imports() []Import {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]Import(nil), u.imports...)
}

// Value returns a plain top-level value declared by the unit.
func (u *Unit) Value(name string) (any, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.values[name]
	return v, ok
}

// Values returns a copy of the plain top-level values.
func (u *Unit) Values() map[string]any {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]any, len(u.values))
	for k, v := range u.values {
		out[k] = v
	}
	return out
}

// SetValue defines a plain top-level value.
func (u *Unit) SetValue(name string, v any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.values[name] = v
}

// Bind records that local name refers to the unit called target.
func (u *Unit) Bind(local, target string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bindings[local] = target
}

// Binding returns the fully-qualified unit name bound to local.
func (u *Unit) Binding(local string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	t, ok := u.bindings[local]
	return t, ok
}

// Bindings returns a copy of the import bindings.
func (u *Unit) Bindings() map[string]string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]string, len(u.bindings))
	for k, v := range u.bindings {
		out[k] = v
	}
	return out
}

// AddDep records a unit reached by one of this unit's import statements.
func (u *Unit) AddDep(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, d := range u.deps {
		if d == name {
			return
		}
	}
	u.deps = append(u.deps, name)
}

// Deps returns the units reached by this unit's import statements during
// its most recent execution, in first-reached order.
func (u *Unit) Deps() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]string(nil), u.deps...)
}

// HasAttr reports whether name resolves on the unit, either as a plain
// value or as a registered child.
func (u *Unit) HasAttr(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if _, ok := u.values[name]; ok {
		return true
	}
	_, ok := u.children[name]
	return ok
}

// ChildName returns the fully-qualified name registered for a child.
func (u *Unit) ChildName(short string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n, ok := u.children[short]
	return n, ok
}

// ChildNames returns the short names of all registered children, sorted.
func (u *Unit) ChildNames() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	names := make([]string, 0, len(u.children))
	for n := range u.children {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (u *Unit) setChild(short, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.children[short] = name
}

// Generation returns how many times the unit has been executed.
func (u *Unit) Generation() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.generation
}

// LoadedAt returns when the unit was last executed.
func (u *Unit) LoadedAt() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.loadedAt
}

// Scope is the calling context of an import: the declared name of the
// importing unit and, when that unit is a package, its search path.
type Scope struct {
	Name string
	Path []string
}

// IsPackage reports whether the scope belongs to a package executing its
// own top-level code.
func (s *Scope) IsPackage() bool {
	return s != nil && s.Path != nil
}

// Importer performs one import statement on behalf of a unit.
//
// The signature mirrors an import statement: name is the dotted name being
// imported, caller is the scope performing the import (nil for top level),
// and fromlist lists the names requested with "from name import ...".
// Without a fromlist the head unit is returned; with one, the target.
type Importer interface {
	Import(name string, caller *Scope, fromlist []string) (*Unit, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(name string, caller *Scope, fromlist []string) (*Unit, error)

// Import calls f.
func (f ImporterFunc) Import(name string, caller *Scope, fromlist []string) (*Unit, error) {
	return f(name, caller, fromlist)
}
