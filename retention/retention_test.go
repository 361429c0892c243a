package retention

import (
	"sync"
	"testing"
	"time"
)

func TestRingKeepsMostRecent(t *testing.T) {
	r := NewRing[int](5)

	for i := 0; i < 12; i++ {
		r.Push(i)
	}

	got := r.Snapshot()
	want := []int{7, 8, 9, 10, 11}

	if len(got) != len(want) {
		t.Fatalf("unexpected length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d]: got %d, want %d", i, got[i], want[i])
		}
	}

	if evicted := r.GetMetrics()["evict_count"]; evicted != 7 {
		t.Errorf("unexpected evict count: got %d, want 7", evicted)
	}
}

func TestRingUnderCapacity(t *testing.T) {
	r := NewRing[string](10)
	r.Push("a")
	r.Push("b")

	got := r.Snapshot()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected snapshot: %v", got)
	}
	if r.Cap() != 10 {
		t.Errorf("unexpected capacity: got %d", r.Cap())
	}
}

func TestRingLast(t *testing.T) {
	r := NewRing[int](3)

	if _, ok := r.Last(); ok {
		t.Fatal("expected no last entry on empty ring")
	}

	for i := 0; i < 5; i++ {
		r.Push(i)
	}
	last, ok := r.Last()
	if !ok || last != 4 {
		t.Errorf("unexpected last entry: got %d, ok=%v", last, ok)
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 10; i++ {
		r.Push(i)
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("expected empty ring after clear, got %d", r.Len())
	}

	// Still usable after clear
	r.Push(42)
	got := r.Snapshot()
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("unexpected snapshot after clear: %v", got)
	}
}

func TestRingConcurrentPush(t *testing.T) {
	r := NewRing[int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Push(i)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 64 {
		t.Errorf("expected full ring, got %d", r.Len())
	}
	if pushes := r.GetMetrics()["push_count"]; pushes != 8000 {
		t.Errorf("unexpected push count: got %d, want 8000", pushes)
	}
}

func TestWindowSweep(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow[string](time.Hour)

	w.Push("old", base.Add(-2*time.Hour))
	w.Push("edge", base.Add(-time.Hour))
	w.Push("recent", base.Add(-time.Minute))
	w.Push("now", base)

	removed := w.Sweep(base)
	if removed != 2 {
		t.Fatalf("unexpected removal count: got %d, want 2", removed)
	}

	got := w.Snapshot(base)
	if len(got) != 2 || got[0] != "recent" || got[1] != "now" {
		t.Errorf("unexpected snapshot after sweep: %v", got)
	}
}

func TestWindowSnapshotSkipsExpired(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow[int](time.Hour)

	w.Push(1, base.Add(-3*time.Hour))
	w.Push(2, base.Add(-time.Minute))

	// No sweep has run, but the expired entry must not be visible.
	got := w.Snapshot(base)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("unexpected snapshot: %v", got)
	}
	if w.Len() != 2 {
		t.Errorf("expected unswept length 2, got %d", w.Len())
	}
}

func TestWindowSweepEmpty(t *testing.T) {
	w := NewWindow[int](time.Hour)
	if removed := w.Sweep(time.Now()); removed != 0 {
		t.Errorf("unexpected removal on empty window: %d", removed)
	}
}

func BenchmarkRingPush(b *testing.B) {
	r := NewRing[int](1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Push(i)
	}
}
