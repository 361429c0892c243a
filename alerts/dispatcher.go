package alerts

import (
	"context"
	"time"

	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/worker"
)

// Dispatcher decouples collectors from the engine: Submit queues the
// observation and returns immediately, so recording a metric never waits
// on alert evaluation. A saturated queue drops observations, same
// recency-over-completeness stance as the bounded stores.
type Dispatcher struct {
	engine *Engine
	pool   *worker.Pool[Observation]
}

// NewDispatcher creates a dispatcher backed by a single evaluation worker
func NewDispatcher(engine *Engine, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 256
	}

	d := &Dispatcher{engine: engine}
	d.pool = worker.NewPool(&worker.Config{MaxWorkers: 1, QueueSize: queueSize}, func(obs Observation) {
		engine.Evaluate(obs)
	})
	return d
}

// Start starts the evaluation worker
func (d *Dispatcher) Start() {
	d.pool.Start()
}

// Stop drains queued observations and stops the worker
func (d *Dispatcher) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.pool.Stop(ctx)
}

// Submit queues an observation for evaluation without blocking
func (d *Dispatcher) Submit(obs Observation) {
	if err := d.pool.Submit(obs); err != nil {
		logger.Debugf(context.Background(), "alert observation dropped: %s/%s", obs.Type, obs.Key)
	}
}

// Engine returns the underlying engine
func (d *Dispatcher) Engine() *Engine {
	return d.engine
}

// GetMetrics returns dispatcher queue metrics
func (d *Dispatcher) GetMetrics() map[string]int64 {
	return d.pool.GetMetrics()
}
