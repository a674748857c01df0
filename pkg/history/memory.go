package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory. It backs tests and runs with
// history disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Record stores a copy of r, assigning an ID if it has none.
func (s *MemoryStore) Record(ctx context.Context, r *Record) error {
	ensureID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.records[r.ID] = &c
	return nil
}

// List returns copies of the matching records, newest first.
func (s *MemoryStore) List(ctx context.Context, q Query) ([]*Record, error) {
	s.mu.RLock()
	var out []*Record
	for _, r := range s.records {
		if matches(r, q) {
			c := *r
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset >= len(out) {
		return []*Record{}, nil
	}
	out = out[q.Offset:]
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a copy of the record with id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

// Prune deletes records that started before olderThan.
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.records {
		if r.StartedAt.Before(olderThan) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func matches(r *Record, q Query) bool {
	if q.Root != "" && r.Root != q.Root {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if !q.Since.IsZero() && r.StartedAt.Before(q.Since) {
		return false
	}
	return true
}
