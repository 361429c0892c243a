package retention

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for a bounded store
type Metrics struct {
	PushCount  atomic.Int64
	EvictCount atomic.Int64
	SweepCount atomic.Int64
}

// Ring is a count-bounded, drop-oldest series. Pushing past capacity
// silently evicts the single oldest entry; overflow is never an error.
type Ring[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	metrics  *Metrics
	mu       sync.RWMutex
}

// NewRing creates a count-bounded series with the given capacity
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 100 // default capacity
	}

	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		metrics:  &Metrics{},
	}
}

// Push appends an item, evicting the oldest entry when full
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[(r.head+r.size)%r.capacity] = item
	if r.size < r.capacity {
		r.size++
	} else {
		r.head = (r.head + 1) % r.capacity
		r.metrics.EvictCount.Add(1)
	}
	r.metrics.PushCount.Add(1)
}

// Snapshot returns a copy of the current entries in insertion order
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%r.capacity]
	}
	return out
}

// Last returns the most recent entry, if any
func (r *Ring[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.head+r.size-1)%r.capacity], true
}

// Clear removes all entries
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = 0
	r.size = 0
}

// Len returns the current number of entries
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the fixed capacity
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// GetMetrics returns current store metrics
func (r *Ring[T]) GetMetrics() map[string]int64 {
	return map[string]int64{
		"push_count":  r.metrics.PushCount.Load(),
		"evict_count": r.metrics.EvictCount.Load(),
		"length":      int64(r.Len()),
	}
}

// timed pairs an entry with its ingestion timestamp
type timed[T any] struct {
	at   time.Time
	item T
}

// Window is a time-bounded, append-only store. Entries older than the
// retention period are dropped by Sweep, which removes from the old end
// only so it never races with concurrent appends at the write head.
type Window[T any] struct {
	entries   []timed[T]
	retention time.Duration
	metrics   *Metrics
	mu        sync.RWMutex
}

// NewWindow creates a time-bounded store with the given retention period
func NewWindow[T any](retention time.Duration) *Window[T] {
	if retention <= 0 {
		retention = 24 * time.Hour // default retention
	}

	return &Window[T]{
		retention: retention,
		metrics:   &Metrics{},
	}
}

// Push appends an item with its timestamp
func (w *Window[T]) Push(item T, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, timed[T]{at: at, item: item})
	w.metrics.PushCount.Add(1)
}

// Snapshot returns a copy of entries still inside the retention period,
// oldest first. Expired entries are skipped even before a sweep runs.
func (w *Window[T]) Snapshot(now time.Time) []T {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cutoff := now.Add(-w.retention)
	out := make([]T, 0, len(w.entries))
	for _, e := range w.entries {
		if e.at.After(cutoff) {
			out = append(out, e.item)
		}
	}
	return out
}

// Sweep drops entries older than the retention period and returns the
// number removed
func (w *Window[T]) Sweep(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.retention)
	idx := 0
	for idx < len(w.entries) && !w.entries[idx].at.After(cutoff) {
		idx++
	}
	if idx == 0 {
		w.metrics.SweepCount.Add(1)
		return 0
	}

	remaining := len(w.entries) - idx
	copy(w.entries, w.entries[idx:])
	for i := remaining; i < len(w.entries); i++ {
		var zero timed[T]
		w.entries[i] = zero
	}
	w.entries = w.entries[:remaining]

	w.metrics.EvictCount.Add(int64(idx))
	w.metrics.SweepCount.Add(1)
	return idx
}

// Clear removes all entries
func (w *Window[T]) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = nil
}

// Len returns the current number of entries, including any not yet swept
func (w *Window[T]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// GetMetrics returns current store metrics
func (w *Window[T]) GetMetrics() map[string]int64 {
	return map[string]int64{
		"push_count":  w.metrics.PushCount.Load(),
		"evict_count": w.metrics.EvictCount.Load(),
		"sweep_count": w.metrics.SweepCount.Load(),
		"length":      int64(w.Len()),
	}
}
