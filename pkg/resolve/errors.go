package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitNotFound is matched by every NotFoundError.
	ErrUnitNotFound = errors.New("no such unit")

	// ErrInconsistentParent is matched by every ParentError.
	ErrInconsistentParent = errors.New("inconsistent parent")
)

// NotFoundError reports a head, tail segment or fromlist entry that the
// fetch function could not locate.
type NotFoundError struct {
	// Name is the fully-qualified name that was requested
	Name string

	// Submodule is set when the missing name is a child of a resolved unit
	Submodule bool
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Submodule {
		return fmt.Sprintf("no such submodule %s", e.Name)
	}
	return fmt.Sprintf("no unit named %s", e.Name)
}

// Is reports whether target is ErrUnitNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrUnitNotFound
}

// ParentError reports a calling scope whose declared parent is absent
// from the module table. It indicates broken host state and is never
// retried.
type ParentError struct {
	// Scope is the declared name of the calling scope
	Scope string

	// Parent is the parent name that could not be found
	Parent string
}

// Error implements the error interface.
func (e *ParentError) Error() string {
	return fmt.Sprintf("parent %q of scope %q is not in the module table", e.Parent, e.Scope)
}

// Is reports whether target is ErrInconsistentParent.
func (e *ParentError) Is(target error) bool {
	return target == ErrInconsistentParent
}
