package reload

import (
	"time"

	"github.com/google/uuid"
)

// Report describes one Reload call.
type Report struct {
	// ID uniquely identifies the call.
	ID string `json:"id"`

	// Root is the fully-qualified name of the unit reload started from.
	Root string `json:"root"`

	// Reloaded lists every unit physically re-executed, in the order
	// execution started.
	Reloaded []string `json:"reloaded"`

	// Missing lists names the loader could not locate.
	Missing []string `json:"missing,omitempty"`

	// Excluded is the exclusion list the call was seeded with.
	Excluded []string `json:"excluded"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Err is the error the call returned, if any.
	Err error `json:"-"`
}

func newReport(root string, exclude []string) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Root:      root,
		Excluded:  append([]string(nil), exclude...),
		StartedAt: time.Now(),
	}
}

// Succeeded reports whether the call returned without error.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// Status returns "success" or "failure".
func (r *Report) Status() string {
	if r.Err != nil {
		return "failure"
	}
	return "success"
}

// ErrorMessage returns the error message, or "" on success.
func (r *Report) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
