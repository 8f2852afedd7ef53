// Package debounce provides a per-key coalescing writer: rapid updates to
// one key collapse into a single delayed flush, while distinct keys keep
// independent timers and never block each other.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
}

// Writer schedules one cancellable delayed task per key. A new Schedule for
// a key cancels and replaces the pending task, so within one key the last
// write wins and no out-of-order flush can occur.
type Writer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pending
	stopped bool
}

// NewWriter creates a Writer with the given coalescing window.
func NewWriter(window time.Duration) *Writer {
	return &Writer{
		window:  window,
		pending: make(map[string]*pending),
	}
}

// Schedule queues fn to run after the window. Any task already pending for
// the key is cancelled and replaced.
func (w *Writer) Schedule(key string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if p, ok := w.pending[key]; ok {
		p.timer.Stop()
	}

	p := &pending{fn: fn}
	p.timer = time.AfterFunc(w.window, func() {
		w.mu.Lock()
		// A replacement may have raced the timer; only the current entry runs.
		if current, ok := w.pending[key]; !ok || current != p {
			w.mu.Unlock()
			return
		}
		delete(w.pending, key)
		w.mu.Unlock()
		p.fn()
	})
	w.pending[key] = p
}

// Flush runs the pending task for a key immediately, if any.
func (w *Writer) Flush(key string) {
	w.mu.Lock()
	p, ok := w.pending[key]
	if ok {
		p.timer.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()

	if ok {
		p.fn()
	}
}

// Stop cancels all timers and runs every pending task once. Further
// Schedule calls are ignored. Used to drain on shutdown.
func (w *Writer) Stop() {
	w.mu.Lock()
	w.stopped = true
	drained := make([]*pending, 0, len(w.pending))
	for key, p := range w.pending {
		p.timer.Stop()
		drained = append(drained, p)
		delete(w.pending, key)
	}
	w.mu.Unlock()

	for _, p := range drained {
		p.fn()
	}
}

// Len reports how many keys have a pending task.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
