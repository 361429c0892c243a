package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrQueueFull = errors.New("task queue is full")

// Config represents pool configuration
type Config struct {
	MaxWorkers int // maximum number of workers
	QueueSize  int // task queue size
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers: 2,
		QueueSize:  256,
	}
}

// Validate validates configuration
func (cfg *Config) Validate() error {
	if cfg.MaxWorkers < 1 {
		return errors.New("max workers must be greater than 0")
	}
	if cfg.QueueSize < 1 {
		return errors.New("queue size must be greater than 0")
	}
	return nil
}

// Metrics tracks pool's operational metrics
type Metrics struct {
	ActiveWorkers  atomic.Int64
	PendingTasks   atomic.Int64
	CompletedTasks atomic.Int64
	FailedTasks    atomic.Int64
	DroppedTasks   atomic.Int64
}

// Handler processes a single task
type Handler[T any] func(task T)

// Pool delivers tasks to a handler on background goroutines. Submit
// never blocks: when the queue is full the task is dropped and counted,
// keeping the caller's path free of observability cost.
type Pool[T any] struct {
	maxWorkers int
	queueSize  int
	handler    Handler[T]

	tasks  chan T
	closed bool
	mu     sync.RWMutex
	wg     sync.WaitGroup

	metrics *Metrics
}

// NewPool creates a new worker pool for the given handler
func NewPool[T any](cfg *Config, handler Handler[T]) *Pool[T] {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Pool[T]{
		maxWorkers: cfg.MaxWorkers,
		queueSize:  cfg.QueueSize,
		handler:    handler,
		tasks:      make(chan T, cfg.QueueSize),
		metrics:    &Metrics{},
	}
}

// Start starts the worker pool
func (p *Pool[T]) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop stops the worker pool, draining queued tasks until the context
// expires. Safe to call multiple times; submits after Stop are dropped.
func (p *Pool[T]) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Submit submits a task to the pool without blocking
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.DroppedTasks.Add(1)
		return ErrQueueFull
	}

	select {
	case p.tasks <- task:
		p.metrics.PendingTasks.Add(1)
		return nil
	default:
		p.metrics.DroppedTasks.Add(1)
		return ErrQueueFull
	}
}

// worker represents a worker goroutine
func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		p.processTask(task)
	}
}

// processTask processes a single task
func (p *Pool[T]) processTask(task T) {
	p.metrics.ActiveWorkers.Add(1)
	p.metrics.PendingTasks.Add(-1)

	defer func() {
		p.metrics.ActiveWorkers.Add(-1)
		if r := recover(); r != nil {
			p.metrics.FailedTasks.Add(1)
			return
		}
		p.metrics.CompletedTasks.Add(1)
	}()

	p.handler(task)
}

// GetMetrics returns the current metrics
func (p *Pool[T]) GetMetrics() map[string]int64 {
	return map[string]int64{
		"active_workers":  p.metrics.ActiveWorkers.Load(),
		"pending_tasks":   p.metrics.PendingTasks.Load(),
		"completed_tasks": p.metrics.CompletedTasks.Load(),
		"failed_tasks":    p.metrics.FailedTasks.Load(),
		"dropped_tasks":   p.metrics.DroppedTasks.Load(),
	}
}

// IsIdle returns whether the pool is idle
func (p *Pool[T]) IsIdle() bool {
	return p.metrics.ActiveWorkers.Load() == 0 && p.metrics.PendingTasks.Load() == 0
}
