package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolProcessesTasks(t *testing.T) {
	var processed atomic.Int64
	p := NewPool(&Config{MaxWorkers: 4, QueueSize: 64}, func(task int) {
		processed.Add(int64(task))
	})
	p.Start()

	for i := 1; i <= 10; i++ {
		if err := p.Submit(i); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)

	if got := processed.Load(); got != 55 {
		t.Errorf("unexpected processed sum: got %d, want 55", got)
	}
	if got := p.GetMetrics()["completed_tasks"]; got != 10 {
		t.Errorf("unexpected completed count: got %d, want 10", got)
	}
}

func TestSubmitDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 1}, func(task int) {
		<-block
	})
	p.Start()

	// First task occupies the worker, second fills the queue.
	_ = p.Submit(1)
	_ = p.Submit(2)

	// Give the worker a moment to pick up the first task so the queue
	// slot state is deterministic enough for the overflow submits below.
	deadline := time.Now().Add(time.Second)
	for p.GetMetrics()["active_workers"] == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = p.Submit(3)

	dropped := false
	for i := 0; i < 8; i++ {
		if err := p.Submit(100 + i); err == ErrQueueFull {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Error("expected ErrQueueFull on saturated queue")
	}
	if got := p.GetMetrics()["dropped_tasks"]; got == 0 {
		t.Error("expected dropped task count to increase")
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
}

func TestSubmitAfterStopDropsWithoutPanic(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 8}, func(task int) {})
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)

	if err := p.Submit(1); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull after Stop, got %v", err)
	}
	if got := p.GetMetrics()["dropped_tasks"]; got != 1 {
		t.Errorf("expected the post-stop submit counted as dropped, got %d", got)
	}
}

func TestStopIdempotent(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 8}, func(task int) {})
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
	p.Stop(ctx)
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	var ok atomic.Int64
	p := NewPool(&Config{MaxWorkers: 1, QueueSize: 8}, func(task int) {
		if task < 0 {
			panic("bad task")
		}
		ok.Add(1)
	})
	p.Start()

	_ = p.Submit(-1)
	_ = p.Submit(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)

	if ok.Load() != 1 {
		t.Errorf("expected 1 successful task after panic, got %d", ok.Load())
	}
	if got := p.GetMetrics()["failed_tasks"]; got != 1 {
		t.Errorf("unexpected failed count: got %d, want 1", got)
	}
}
