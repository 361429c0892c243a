package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for the scheduler
type Metrics struct {
	StartCount  atomic.Int64
	TickCount   atomic.Int64
	CancelCount atomic.Int64
}

// Scheduler runs named periodic tasks until they are cancelled. Every
// timer-driven activity goes through here so teardown is uniform and
// tests can drive ticks with a fake clock.
type Scheduler struct {
	clock   Clock
	tasks   map[string]*Task
	metrics *Metrics
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// New creates a scheduler. A nil clock means wall-clock time.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{
		clock:   clock,
		tasks:   make(map[string]*Task),
		metrics: &Metrics{},
	}
}

// Every starts a periodic task invoking fn on each tick. A task with the
// same name replaces the previous one. Returns nil if the scheduler has
// been stopped.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(now time.Time)) *Task {
	if interval <= 0 || fn == nil {
		return nil
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	prev := s.tasks[name]

	t := &Task{
		name:      name,
		interval:  interval,
		fn:        fn,
		done:      make(chan struct{}),
		scheduler: s,
	}
	s.tasks[name] = t
	s.mu.Unlock()

	// Cancel outside the lock; Cancel re-acquires it to deregister.
	prev.Cancel()

	s.metrics.StartCount.Add(1)
	s.wg.Add(1)
	go t.run()

	return t
}

// Now returns the scheduler clock's current time
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Stop cancels all tasks and waits for their loops to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.wg.Wait()
}

// GetMetrics returns current scheduler metrics
func (s *Scheduler) GetMetrics() map[string]int64 {
	s.mu.Lock()
	active := int64(len(s.tasks))
	s.mu.Unlock()

	return map[string]int64{
		"start_count":  s.metrics.StartCount.Load(),
		"tick_count":   s.metrics.TickCount.Load(),
		"cancel_count": s.metrics.CancelCount.Load(),
		"active_tasks": active,
	}
}

// Task is a cancellable periodic task handle
type Task struct {
	name      string
	interval  time.Duration
	fn        func(now time.Time)
	done      chan struct{}
	scheduler *Scheduler
	cancelled atomic.Bool
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// Cancel stops the task. Safe to call multiple times.
func (t *Task) Cancel() {
	if t == nil || !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	close(t.done)

	s := t.scheduler
	s.metrics.CancelCount.Add(1)
	s.mu.Lock()
	if s.tasks[t.name] == t {
		delete(s.tasks, t.name)
	}
	s.mu.Unlock()
}

func (t *Task) run() {
	s := t.scheduler
	defer s.wg.Done()

	ticker := s.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case now, ok := <-ticker.Chan():
			if !ok {
				return
			}
			s.metrics.TickCount.Add(1)
			t.fn(now)
		}
	}
}
