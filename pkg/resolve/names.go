package resolve

import (
	"strings"

	"mercator-hq/deepreload/pkg/unit"
)

// SplitHead splits name on its first separator. tail is empty when name
// has no separator.
func SplitHead(name string) (head, tail string) {
	if i := strings.Index(name, unit.Separator); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// SplitParent splits name on its last separator so that
// parent + "." + leaf == name. parent is empty for top-level names.
func SplitParent(name string) (parent, leaf string) {
	if i := strings.LastIndex(name, unit.Separator); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// Qualify joins a parent name and a short name.
func Qualify(parent, short string) string {
	if parent == "" {
		return short
	}
	return parent + unit.Separator + short
}

// DetermineParent returns the package an import performed from scope is
// relative to, or nil when there is none.
//
// A scope with a search path is a package executing its own top-level
// code, so its own unit is the parent. A dotted scope name has the unit
// for everything before its last separator as parent. A top-level scope
// has no parent.
func DetermineParent(table *unit.Table, scope *unit.Scope) (*unit.Unit, error) {
	if scope == nil || scope.Name == "" {
		return nil, nil
	}

	if scope.IsPackage() {
		parent, ok := table.Get(scope.Name)
		if !ok {
			return nil, &ParentError{Scope: scope.Name, Parent: scope.Name}
		}
		return parent, nil
	}

	pname, _ := SplitParent(scope.Name)
	if pname == "" {
		return nil, nil
	}
	parent, ok := table.Get(pname)
	if !ok {
		return nil, &ParentError{Scope: scope.Name, Parent: pname}
	}
	return parent, nil
}
