package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mercator-hq/deepreload/pkg/loader"
	"mercator-hq/deepreload/pkg/resolve"
	"mercator-hq/deepreload/pkg/unit"
)

// Issue is a problem Lint found in a unit source.
type Issue struct {
	Unit    string `json:"unit"`
	File    string `json:"file,omitempty"`
	Import  string `json:"import,omitempty"`
	Message string `json:"message"`
}

// String renders the issue for CLI output.
func (i Issue) String() string {
	loc := i.Unit
	if i.File != "" {
		loc = fmt.Sprintf("%s (%s)", i.Unit, i.File)
	}
	if i.Import != "" {
		return fmt.Sprintf("%s: %s: %s", loc, i.Import, i.Message)
	}
	return fmt.Sprintf("%s: %s", loc, i.Message)
}

// Lint parses every unit statically reachable from the configured roots
// without executing anything or touching the module table. It reports
// sources that fail to read or parse, imports no search path satisfies and
// exported names that resolve to nothing.
func (m *Manager) Lint(ctx context.Context) ([]Issue, error) {
	if m.repo != nil {
		if err := m.repo.Open(ctx); err != nil {
			return nil, fmt.Errorf("failed to open git source: %w", err)
		}
	}

	l := &linter{loader: m.loader, seen: make(map[string]bool)}

	for _, root := range m.config.Units.Roots {
		if err := ctx.Err(); err != nil {
			return l.issues, err
		}
		h, err := l.resolve(root)
		if err != nil {
			l.add(Issue{Unit: root, Message: fmt.Sprintf("root not found: %v", err)})
			continue
		}
		if err := l.unit(ctx, root, h); err != nil {
			return l.issues, err
		}
	}

	sort.SliceStable(l.issues, func(i, j int) bool { return l.issues[i].Unit < l.issues[j].Unit })
	return l.issues, nil
}

type linter struct {
	loader *loader.Loader
	seen   map[string]bool
	issues []Issue
}

func (l *linter) add(i Issue) {
	l.issues = append(l.issues, i)
}

// resolve finds the source of a dotted name by walking package
// directories from the default search paths.
func (l *linter) resolve(name string) (*loader.Handle, error) {
	head, tail := resolve.SplitHead(name)
	h, err := l.loader.Find(head, nil)
	for err == nil && tail != "" {
		if !h.IsPackage {
			return nil, fmt.Errorf("%s is not a package", h.Short)
		}
		var next string
		next, tail = resolve.SplitHead(tail)
		h, err = l.loader.Find(next, []string{h.Dir})
	}
	return h, err
}

func (l *linter) unit(ctx context.Context, name string, h *loader.Handle) error {
	if l.seen[name] {
		return nil
	}
	l.seen[name] = true
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := l.loader.Lint(h)
	if err != nil {
		l.add(Issue{Unit: name, File: h.File, Message: err.Error()})
		return nil
	}

	// Imports inside a package resolve against the package first.
	pkg, _ := resolve.SplitParent(name)
	if h.IsPackage {
		pkg = name
	}

	for _, imp := range doc.Imports {
		target, th, err := l.importTarget(pkg, imp.Name)
		if err != nil {
			l.add(Issue{Unit: name, File: h.File, Import: imp.String(), Message: err.Error()})
			continue
		}
		if th == nil {
			continue
		}
		if err := l.unit(ctx, target, th); err != nil {
			return err
		}
		if err := l.fromlist(ctx, imp, target, th); err != nil {
			return err
		}
	}

	if h.IsPackage {
		for _, export := range doc.Exports {
			if _, ok := doc.Values[export]; ok {
				continue
			}
			if _, err := l.loader.Find(export, []string{h.Dir}); err != nil {
				l.add(Issue{Unit: name, File: h.File, Message: fmt.Sprintf("exported name %q does not exist", export)})
			}
		}
	}
	return nil
}

// importTarget resolves an import statement's name the way the host does:
// relative to pkg first, then from top level. A nil handle means a base
// unit with no source.
func (l *linter) importTarget(pkg, name string) (string, *loader.Handle, error) {
	if pkg != "" {
		rel := resolve.Qualify(pkg, name)
		if h, err := l.resolve(rel); err == nil {
			return rel, h, nil
		}
	}

	head, _ := resolve.SplitHead(name)
	if unit.IsBase(head) {
		return name, nil, nil
	}

	h, err := l.resolve(name)
	if err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			return "", nil, fmt.Errorf("no unit named %s", name)
		}
		return "", nil, err
	}
	return name, h, nil
}

// fromlist lints the children a "from target import ..." statement pulls
// in as submodules.
func (l *linter) fromlist(ctx context.Context, imp unit.Import, target string, th *loader.Handle) error {
	if !th.IsPackage {
		return nil
	}
	for _, from := range imp.From {
		if from == unit.Wildcard {
			continue
		}
		ch, err := l.loader.Find(from, []string{th.Dir})
		if err != nil {
			// A plain value of the package; checked when it executes.
			continue
		}
		if err := l.unit(ctx, resolve.Qualify(target, from), ch); err != nil {
			return err
		}
	}
	return nil
}
