package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects paths reported in quick succession and delivers them
// as one batch after a quiet period. Each batch is delivered from its own
// timer goroutine, but flush calls are serialized: a batch that comes due
// while the previous flush is running waits for it.
type Debouncer struct {
	interval time.Duration

	// flushMu is held from collecting a batch until its flush returns.
	flushMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	flush   func([]string)
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]struct{}),
	}
}

// Add records path and restarts the quiet period. When it elapses, flush
// is called with every path added since the previous batch.
func (d *Debouncer) Add(path string, flush func([]string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	d.flush = flush

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(d.pending))
	for p := range d.pending {
		batch = append(batch, p)
	}
	d.pending = make(map[string]struct{})
	flush := d.flush
	d.mu.Unlock()

	sort.Strings(batch)
	if flush != nil {
		flush(batch)
	}
}

// Stop cancels any pending batch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
	d.flush = nil
}
