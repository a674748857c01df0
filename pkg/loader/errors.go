package loader

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find when no source exists for a name.
var ErrNotFound = errors.New("unit source not found")

// LoadError represents a failure reading a unit source: missing or
// unreadable files, size limit violations and invalid encoding.
type LoadError struct {
	// FilePath is the source that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load unit source %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load unit source %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents a malformed unit source.
type ParseError struct {
	// FilePath is the source that failed to parse
	FilePath string

	// Line is the line number where the error occurred (1-indexed)
	Line int

	// Message describes the parsing error
	Message string

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %q at line %d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ExecError represents a failure while executing a unit's top-level
// import statements.
type ExecError struct {
	// Unit is the fully-qualified name of the unit being executed
	Unit string

	// Statement is the import statement that failed, if any
	Statement string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("executing unit %q", e.Unit)
	if e.Statement != "" {
		msg += fmt.Sprintf(" at %q", e.Statement)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ExecError) Unwrap() error {
	return e.Cause
}
