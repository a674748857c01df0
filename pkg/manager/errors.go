package manager

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGitDisabled is returned by git operations when git.enabled is off.
	ErrGitDisabled = errors.New("git source is not enabled")

	// ErrClosed is returned by operations on a closed manager.
	ErrClosed = errors.New("manager is closed")
)

// RootError reports a root unit that failed to load or reload.
type RootError struct {
	Root  string
	Cause error
}

// Error implements the error interface.
func (e *RootError) Error() string {
	return fmt.Sprintf("root %q: %v", e.Root, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RootError) Unwrap() error {
	return e.Cause
}

// ErrorList collects the errors of an operation over several roots, so one
// failing root does not stop the rest.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As see each
// of them.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}

// Add appends err if it is non-nil.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors reports whether any error was added.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil for an empty list, the only error for a list of one,
// and the list itself otherwise.
func (e *ErrorList) ToError() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}
