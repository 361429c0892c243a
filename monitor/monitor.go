package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/client"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/metrics"
	"github.com/pulseobs/pulse/schedule"
)

// Monitor wires together the collectors, the alert pipeline, the
// scheduler, and the reporter behind one lifecycle. Create one per
// process and pass it where instrumentation is needed; there is no
// package-level instance.
type Monitor struct {
	cfg        *config.Config
	server     *metrics.Collector
	client     *client.Collector
	dispatcher *alerts.Dispatcher
	reporter   *Reporter
	sched      *schedule.Scheduler

	startOnce sync.Once
	stopOnce  sync.Once
}

// Option customizes the monitor
type Option func(*options)

type options struct {
	clock schedule.Clock
	env   client.Environment
	now   func() time.Time
}

// WithClock injects the scheduler clock, for tests
func WithClock(c schedule.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithEnvironment attaches a client host environment. Without one the
// client collector runs with no optional capabilities.
func WithEnvironment(env client.Environment) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithNow injects the time source for the collectors and the alert
// engine, for tests
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds a monitor from config. A nil config uses defaults.
func New(cfg *config.Config, opts ...Option) *Monitor {
	if cfg == nil {
		cfg = config.Default()
	}

	o := options{
		clock: schedule.RealClock{},
		env:   client.NoEnvironment{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	engine := alerts.NewEngine(cfg.Alerts, o.now)
	dispatcher := alerts.NewDispatcher(engine, cfg.Alerts.QueueSize)
	sched := schedule.New(o.clock)

	server := metrics.NewCollector(cfg.Server, cfg.Trend, dispatcher,
		metrics.WithNow(o.now))
	cc := client.NewCollector(cfg.Client, cfg.Trend, dispatcher, o.env, sched,
		client.WithNow(o.now))

	return &Monitor{
		cfg:        cfg,
		server:     server,
		client:     cc,
		dispatcher: dispatcher,
		reporter:   NewReporter(cfg.Report, server, cc, engine),
		sched:      sched,
	}
}

// Start launches the alert dispatcher and the periodic tasks: server
// memory sampling and alert retention sweeping. Idempotent.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		m.dispatcher.Start()

		m.sched.Every("server_memory_sample", m.cfg.Server.MemorySampleInterval, func(now time.Time) {
			m.server.SampleMemory(now)
		})
		m.sched.Every("alert_sweep", m.cfg.Alerts.SweepInterval, func(now time.Time) {
			if n := m.dispatcher.Engine().Sweep(now); n > 0 {
				logger.Debugf(context.Background(), "swept %d expired alerts", n)
			}
		})

		m.client.ObserveWebVitals()
		m.client.MonitorMemory()

		logger.Info(context.Background(), "performance monitor started")
	})
}

// Stop cancels the periodic tasks, tears down the client collector, and
// drains the alert dispatcher. Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.client.Close()
		m.sched.Stop()
		m.dispatcher.Stop()

		logger.Info(context.Background(), "performance monitor stopped")
	})
}

// Server returns the server-side collector
func (m *Monitor) Server() *metrics.Collector {
	return m.server
}

// Client returns the client-side collector
func (m *Monitor) Client() *client.Collector {
	return m.client
}

// Alerts returns the alert engine
func (m *Monitor) Alerts() *alerts.Engine {
	return m.dispatcher.Engine()
}

// AddNotifier registers a callback invoked for every emitted alert
func (m *Monitor) AddNotifier(n alerts.Notifier) {
	m.dispatcher.Engine().AddNotifier(n)
}

// Report assembles a point-in-time snapshot
func (m *Monitor) Report() Report {
	return m.reporter.Build()
}

// HealthScore recomputes the current composite score
func (m *Monitor) HealthScore() int {
	return Score(m.server.Aggregates())
}
