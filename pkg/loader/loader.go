package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"mercator-hq/deepreload/pkg/unit"
)

// PackageFile is the base name, without extension, of the source file
// that holds a package's own top-level code.
const PackageFile = "package"

// Config contains configuration for the unit loader.
type Config struct {
	// SearchPaths are the directories searched for top-level units, in order.
	SearchPaths []string

	// MaxFileSize is the maximum source size in bytes (default: 1MB)
	MaxFileSize int64

	// Extensions are the accepted source extensions, in lookup order
	// (default: [".yaml", ".yml"])
	Extensions []string
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPaths: []string{"."},
		MaxFileSize: 1024 * 1024,
		Extensions:  []string{".yaml", ".yml"},
	}
}

// Handle identifies a unit source found by Find.
type Handle struct {
	// Short is the name Find was asked for.
	Short string

	// File is the source file holding the unit's top-level code.
	File string

	// IsPackage reports whether the source is a package directory.
	IsPackage bool

	// Dir is the package directory. Empty for plain units.
	Dir string
}

// Loader finds unit sources across search paths and executes them into
// the module table.
//
// Executing a unit runs its top-level import statements through the bound
// Importer, which is how nested imports reach whatever import strategy the
// host currently has installed.
type Loader struct {
	config *Config
	source Source
	table  *unit.Table
	logger *slog.Logger

	mu       sync.RWMutex
	importer unit.Importer
}

// New creates a loader that reads from source and registers executed
// units in table.
func New(cfg *Config, source Source, table *unit.Table, logger *slog.Logger) *Loader {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if source == nil {
		source = NewDirSource()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: cfg,
		source: source,
		table:  table,
		logger: logger.With("component", "loader"),
	}
}

// Bind sets the importer used for the import statements of executed units.
func (l *Loader) Bind(importer unit.Importer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.importer = importer
}

// SearchPaths returns the default search paths for top-level units.
func (l *Loader) SearchPaths() []string {
	return append([]string(nil), l.config.SearchPaths...)
}

// Extensions returns the accepted source extensions in lookup order.
func (l *Loader) Extensions() []string {
	return append([]string(nil), l.config.Extensions...)
}

// Source returns the source the loader reads from.
func (l *Loader) Source() Source {
	return l.source
}

// Find locates the source for short in searchPaths. A nil searchPaths
// means the loader's default search paths. It returns ErrNotFound when no
// directory holds a matching package or plain unit.
func (l *Loader) Find(short string, searchPaths []string) (*Handle, error) {
	if short == "" || strings.Contains(short, unit.Separator) {
		return nil, fmt.Errorf("invalid short name %q: %w", short, ErrNotFound)
	}
	if searchPaths == nil {
		searchPaths = l.config.SearchPaths
	}

	for _, dir := range searchPaths {
		pkgDir := l.source.Join(dir, short)
		if info, err := l.source.Stat(pkgDir); err == nil && info.IsDir() {
			for _, ext := range l.config.Extensions {
				file := l.source.Join(pkgDir, PackageFile+ext)
				if l.isFile(file) {
					return &Handle{Short: short, File: file, IsPackage: true, Dir: pkgDir}, nil
				}
			}
		}

		for _, ext := range l.config.Extensions {
			file := l.source.Join(dir, short+ext)
			if l.isFile(file) {
				return &Handle{Short: short, File: file}, nil
			}
		}
	}

	return nil, ErrNotFound
}

// FindChild locates the source for the child short of parent, or for a
// top-level unit when parent is nil. Only packages have children.
func (l *Loader) FindChild(short string, parent *unit.Unit) (*Handle, error) {
	if parent == nil {
		return l.Find(short, nil)
	}
	if !parent.IsPackage || parent.Path == nil {
		return nil, ErrNotFound
	}
	return l.Find(short, parent.Path)
}

func (l *Loader) isFile(name string) bool {
	info, err := l.source.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// Execute runs the source identified by h as the unit called name.
//
// An existing table entry is re-executed in place; otherwise a new unit is
// created. Either way the unit is in the table before its imports run, so
// cyclic imports resolve to the partially executed unit. A unit created by
// this call is removed from the table again if execution fails.
func (l *Loader) Execute(name string, h *Handle) (*unit.Unit, error) {
	if h == nil {
		return nil, &LoadError{FilePath: name, Message: "nil handle"}
	}

	doc, err := l.read(h.File)
	if err != nil {
		return nil, err
	}

	u, existed := l.table.Get(name)
	if !existed {
		u = unit.New(name)
	}
	u.IsPackage = h.IsPackage
	u.Path = nil
	if h.IsPackage {
		u.Path = []string{h.Dir}
	}
	u.File = h.File
	u.Reset(doc)

	if err := l.table.Set(name, u); err != nil {
		return nil, err
	}

	if err := l.run(u, doc); err != nil {
		if !existed {
			l.table.Remove(name)
		}
		return nil, err
	}

	l.logger.Debug("executed unit",
		"unit", name,
		"file", h.File,
		"package", h.IsPackage,
		"generation", u.Generation(),
	)
	return u, nil
}

// read loads and parses a source file after size and encoding checks.
func (l *Loader) read(file string) (*unit.Document, error) {
	info, err := l.source.Stat(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{FilePath: file, Message: "file not found", Cause: err}
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, &LoadError{FilePath: file, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: file, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: file, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: file,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := l.source.ReadFile(file)
	if err != nil {
		return nil, &LoadError{FilePath: file, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: file, Message: "file contains invalid UTF-8 encoding"}
	}

	doc, err := unit.Parse(data)
	if err != nil {
		pe := &ParseError{FilePath: file, Message: err.Error(), Cause: err}
		var synErr *unit.SyntaxError
		if errors.As(err, &synErr) {
			pe.Line = synErr.Line
			pe.Message = synErr.Message
		}
		return nil, pe
	}
	return doc, nil
}

// Lint reads and parses the source for h without executing it.
func (l *Loader) Lint(h *Handle) (*unit.Document, error) {
	return l.read(h.File)
}

// run executes the import statements of u in source order.
func (l *Loader) run(u *unit.Unit, doc *unit.Document) error {
	l.mu.RLock()
	importer := l.importer
	l.mu.RUnlock()

	if importer == nil {
		if len(doc.Imports) > 0 {
			return &ExecError{Unit: u.Name, Message: "no importer bound to loader"}
		}
		return nil
	}

	scope := u.Scope()
	for _, imp := range doc.Imports {
		if err := l.runImport(importer, u, scope, imp); err != nil {
			return &ExecError{Unit: u.Name, Statement: imp.String(), Message: "import failed", Cause: err}
		}
	}
	return nil
}

func (l *Loader) runImport(importer unit.Importer, u *unit.Unit, scope *unit.Scope, imp unit.Import) error {
	head, tail := imp.Name, ""
	if i := strings.Index(imp.Name, unit.Separator); i >= 0 {
		head, tail = imp.Name[:i], imp.Name[i+1:]
	}

	if len(imp.From) == 0 {
		m, err := importer.Import(imp.Name, scope, nil)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("no unit named %s", imp.Name)
		}
		target := m.Name
		if tail != "" {
			target = m.Name + unit.Separator + tail
		}
		u.AddDep(m.Name)
		u.AddDep(target)
		if imp.As != "" {
			u.Bind(imp.As, target)
		} else {
			u.Bind(head, m.Name)
		}
		return nil
	}

	m, err := importer.Import(imp.Name, scope, imp.From)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no unit named %s", imp.Name)
	}
	u.AddDep(m.Name)

	for _, name := range imp.From {
		if name == unit.Wildcard {
			l.bindAll(u, m)
			continue
		}
		if err := l.bindFrom(u, m, name); err != nil {
			return err
		}
	}
	return nil
}

// bindFrom binds one name requested with "from m import name".
func (l *Loader) bindFrom(u, m *unit.Unit, name string) error {
	if v, ok := m.Value(name); ok {
		u.SetValue(name, v)
		return nil
	}
	if child, ok := l.table.Child(m.Name, name); ok {
		u.Bind(name, child.Name)
		u.AddDep(child.Name)
		return nil
	}
	return fmt.Errorf("cannot import name %q from %s", name, m.Name)
}

// bindAll binds every exported name of m, or every public value and child
// when m declares no export list. Exported names that do not resolve are
// skipped.
func (l *Loader) bindAll(u, m *unit.Unit) {
	names, ok := m.Exports()
	if !ok {
		for k := range m.Values() {
			names = append(names, k)
		}
		names = append(names, m.ChildNames()...)
	}
	for _, name := range names {
		if strings.HasPrefix(name, "_") && !ok {
			continue
		}
		if err := l.bindFrom(u, m, name); err != nil {
			l.logger.Debug("wildcard name not bound", "unit", u.Name, "from", m.Name, "name", name)
		}
	}
}
