package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mercator-hq/deepreload/pkg/reload"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("history record not found")

// Record is one stored reload outcome.
type Record struct {
	ID           string        `json:"id"`
	ReloadID     string        `json:"reload_id"`
	Root         string        `json:"root"`
	Trigger      string        `json:"trigger"`
	Status       string        `json:"status"`
	Reloaded     []string      `json:"reloaded"`
	Missing      []string      `json:"missing,omitempty"`
	Error        string        `json:"error,omitempty"`
	TableVersion string        `json:"table_version,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// NewRecord builds a record from a reload report.
func NewRecord(report *reload.Report, trigger, tableVersion string) *Record {
	return &Record{
		ID:           uuid.New().String(),
		ReloadID:     report.ID,
		Root:         report.Root,
		Trigger:      trigger,
		Status:       report.Status(),
		Reloaded:     append([]string(nil), report.Reloaded...),
		Missing:      append([]string(nil), report.Missing...),
		Error:        report.ErrorMessage(),
		TableVersion: tableVersion,
		StartedAt:    report.StartedAt,
		Duration:     report.Duration,
	}
}

// Query filters List results. Zero fields match everything.
type Query struct {
	Root   string
	Status string
	Since  time.Time
	Limit  int
	Offset int
}

// DefaultLimit caps List when Query.Limit is zero.
const DefaultLimit = 100

// Store persists reload records. Implementations are safe for concurrent
// use. List returns records newest first.
type Store interface {
	Record(ctx context.Context, r *Record) error
	List(ctx context.Context, q Query) ([]*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

func ensureID(r *Record) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
}
