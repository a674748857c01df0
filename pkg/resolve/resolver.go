package resolve

import (
	"mercator-hq/deepreload/pkg/unit"
)

// FetchFunc obtains the unit called name, whose last segment is short,
// as a child of parent (nil for top-level names). A nil unit with a nil
// error means not found.
type FetchFunc func(short, name string, parent *unit.Unit) (*unit.Unit, error)

// Resolver implements import-statement semantics on top of a fetch
// function. The fetch function decides whether a name is served from the
// module table or loaded again.
type Resolver struct {
	table *unit.Table
	fetch FetchFunc
}

// New creates a resolver that looks parents up in table and obtains units
// through fetch.
func New(table *unit.Table, fetch FetchFunc) *Resolver {
	return &Resolver{table: table, fetch: fetch}
}

// Import performs "import name" (fromlist empty) or "from name import
// fromlist..." on behalf of caller. Without a fromlist the head unit is
// returned; with one, the target unit.
func (r *Resolver) Import(name string, caller *unit.Scope, fromlist []string) (*unit.Unit, error) {
	parent, err := DetermineParent(r.table, caller)
	if err != nil {
		return nil, err
	}

	head, tail, err := r.FindHead(parent, name)
	if err != nil {
		return nil, err
	}

	target, err := r.WalkTail(head, tail)
	if err != nil {
		return nil, err
	}

	if len(fromlist) == 0 {
		return head, nil
	}
	if target.IsPackage {
		if err := r.EnsureFromlist(target, fromlist); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// FindHead resolves the first segment of name relative to parent, falling
// back once to a top-level lookup when the relative one finds nothing.
// It returns the head unit and the remaining tail.
func (r *Resolver) FindHead(parent *unit.Unit, name string) (*unit.Unit, string, error) {
	head, tail := SplitHead(name)

	qname := head
	if parent != nil {
		qname = Qualify(parent.Name, head)
	}

	u, err := r.fetch(head, qname, parent)
	if err != nil {
		return nil, "", err
	}
	if u != nil {
		return u, tail, nil
	}

	if parent != nil {
		qname = head
		u, err = r.fetch(head, qname, nil)
		if err != nil {
			return nil, "", err
		}
		if u != nil {
			return u, tail, nil
		}
	}

	return nil, "", &NotFoundError{Name: qname}
}

// WalkTail descends from start through each dotted segment of tail.
func (r *Resolver) WalkTail(start *unit.Unit, tail string) (*unit.Unit, error) {
	m := start
	for tail != "" {
		var head string
		head, tail = SplitHead(tail)
		mname := Qualify(m.Name, head)

		next, err := r.fetch(head, mname, m)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, &NotFoundError{Name: mname, Submodule: true}
		}
		m = next
	}
	return m, nil
}

// EnsureFromlist makes sure every name in fromlist is available on the
// package m, loading it as a submodule unless m defines a plain value of
// that name. The wildcard expands to m's declared export list once; a
// wildcard inside that list is not expanded again.
func (r *Resolver) EnsureFromlist(m *unit.Unit, fromlist []string) error {
	return r.ensureFromlist(m, fromlist, false)
}

func (r *Resolver) ensureFromlist(m *unit.Unit, fromlist []string, expanded bool) error {
	for _, sub := range fromlist {
		if sub == unit.Wildcard {
			if expanded {
				continue
			}
			if exports, ok := m.Exports(); ok {
				if err := r.ensureFromlist(m, exports, true); err != nil {
					return err
				}
			}
			continue
		}

		if _, ok := m.Value(sub); ok {
			continue
		}

		subname := Qualify(m.Name, sub)
		child, err := r.fetch(sub, subname, m)
		if err != nil {
			return err
		}
		if child == nil {
			return &NotFoundError{Name: subname, Submodule: true}
		}
	}
	return nil
}
