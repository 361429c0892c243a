package client

import (
	"context"
	"sync"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/metrics"
	"github.com/pulseobs/pulse/retention"
	"github.com/pulseobs/pulse/schedule"
	"github.com/pulseobs/pulse/trend"
)

const memoryTaskName = "client_memory_sample"

// RenderToken marks the start of a render measurement
type RenderToken struct {
	start time.Time
}

// Collector instruments the UI side: render cycles, interaction delays,
// network calls, web vitals, and heap sampling. Measurement calls are
// synchronous brackets around existing work; only the vitals
// subscription and the memory timer are asynchronous, and both are
// disposable through Close.
type Collector struct {
	cfg      *config.Client
	sink     alerts.Sink
	detector trend.Detector
	env      Environment
	sched    *schedule.Scheduler

	renders      *retention.Ring[RenderMetric]
	interactions *retention.Ring[InteractionMetric]
	network      *retention.Ring[NetworkMetric]
	memory       *retention.Ring[metrics.MemorySample]

	vitals   map[VitalKind]WebVital
	vitalsMu sync.RWMutex

	unsubVitals func()
	memTask     *schedule.Task
	lifecycleMu sync.Mutex
	closed      bool

	now func() time.Time
}

// Option customizes the collector
type Option func(*Collector)

// WithNow injects the time source, for tests
func WithNow(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates a client-side collector. The environment is
// probed lazily by ObserveWebVitals and MonitorMemory; a nil environment
// behaves like NoEnvironment.
func NewCollector(cfg *config.Client, trendCfg *config.Trend, sink alerts.Sink, env Environment, sched *schedule.Scheduler, opts ...Option) *Collector {
	if cfg == nil {
		cfg = config.Default().Client
	}
	if trendCfg == nil {
		trendCfg = config.Default().Trend
	}
	if env == nil {
		env = NoEnvironment{}
	}

	c := &Collector{
		cfg:  cfg,
		sink: sink,
		detector: trend.Detector{
			WindowSize:        trendCfg.WindowSize,
			DeltaThreshold:    trendCfg.DeltaThreshold,
			AbsoluteThreshold: trendCfg.AbsoluteThreshold,
		},
		env:          env,
		sched:        sched,
		renders:      retention.NewRing[RenderMetric](cfg.RenderCapacity),
		interactions: retention.NewRing[InteractionMetric](cfg.InteractionCapacity),
		network:      retention.NewRing[NetworkMetric](cfg.NetworkCapacity),
		memory:       retention.NewRing[metrics.MemorySample](cfg.MemoryCapacity),
		vitals:       make(map[VitalKind]WebVital),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartRender marks the start of a render cycle
func (c *Collector) StartRender() RenderToken {
	return RenderToken{start: c.now()}
}

// EndRender records the render bracketed by the token
func (c *Collector) EndRender(token RenderToken, component string) {
	if token.start.IsZero() {
		return
	}
	now := c.now()
	c.RecordRender(RenderMetric{
		Component: component,
		Duration:  now.Sub(token.start),
		Timestamp: now,
	})
}

// RecordRender ingests a pre-measured render, classifying it the same
// way EndRender does. Used for remote clients reporting measurements
// over the wire.
func (c *Collector) RecordRender(m RenderMetric) {
	defer c.recoverRecording("render")

	if m.Duration < 0 {
		return
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = c.now()
	}

	c.renders.Push(m)

	if m.Duration > c.cfg.SlowRenderThreshold {
		c.observe(alerts.Observation{
			Type:      alerts.TypeSlowRender,
			Key:       m.Component,
			Source:    "client",
			Value:     float64(m.Duration.Milliseconds()),
			Threshold: float64(c.cfg.SlowRenderThreshold.Milliseconds()),
			At:        m.Timestamp,
		})
	}
}

// TrackInteraction records the delay between the interaction start and
// now
func (c *Collector) TrackInteraction(name string, start time.Time) {
	now := c.now()
	c.RecordInteraction(InteractionMetric{
		Name:      name,
		Delay:     now.Sub(start),
		Timestamp: now,
	})
}

// RecordInteraction ingests a pre-measured interaction delay
func (c *Collector) RecordInteraction(m InteractionMetric) {
	defer c.recoverRecording("interaction")

	if m.Delay < 0 {
		return
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = c.now()
	}

	c.interactions.Push(m)

	if m.Delay > c.cfg.SlowInteractionThreshold {
		c.observe(alerts.Observation{
			Type:      alerts.TypeSlowInteraction,
			Key:       m.Name,
			Source:    "client",
			Value:     float64(m.Delay.Milliseconds()),
			Threshold: float64(c.cfg.SlowInteractionThreshold.Milliseconds()),
			At:        m.Timestamp,
		})
	}
}

// TrackNetwork records one network call
func (c *Collector) TrackNetwork(url, method string, duration time.Duration, sizeBytes int64, status int) {
	c.RecordNetwork(NetworkMetric{
		URL:       url,
		Method:    method,
		Duration:  duration,
		SizeBytes: sizeBytes,
		Status:    status,
		Timestamp: c.now(),
	})
}

// RecordNetwork ingests a pre-measured network call
func (c *Collector) RecordNetwork(m NetworkMetric) {
	defer c.recoverRecording("network")

	if m.Duration < 0 {
		return
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = c.now()
	}

	c.network.Push(m)

	if m.SizeBytes > c.cfg.LargePayloadBytes {
		c.observe(alerts.Observation{
			Type:      alerts.TypeLargePayload,
			Key:       m.URL,
			Source:    "client",
			Value:     float64(m.SizeBytes),
			Threshold: float64(c.cfg.LargePayloadBytes),
			At:        m.Timestamp,
			Data:      map[string]any{"method": m.Method},
		})
	}
}

// RecordVital ingests one vital reading directly, bypassing the host
// subscription. Last value per kind wins.
func (c *Collector) RecordVital(entry VitalEntry) {
	c.recordVital(entry)
}

// ObserveWebVitals subscribes to the host's vital notifications. The
// subscription is registered once; repeated calls are no-ops. Returns
// false when the host lacks the capability.
func (c *Collector) ObserveWebVitals() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.closed || c.unsubVitals != nil {
		return c.unsubVitals != nil
	}

	source, ok := c.env.Vitals()
	if !ok {
		logger.Debug(context.Background(), "web vitals not supported by host environment")
		return false
	}

	c.unsubVitals = source.Subscribe(c.recordVital)
	return true
}

// MonitorMemory starts periodic heap sampling. Repeated calls are
// no-ops. Returns false when the host lacks a memory API or no
// scheduler is attached.
func (c *Collector) MonitorMemory() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.closed || c.memTask != nil {
		return c.memTask != nil
	}
	if c.sched == nil {
		return false
	}

	prober, ok := c.env.Memory()
	if !ok {
		logger.Debug(context.Background(), "memory API not supported by host environment")
		return false
	}

	c.memTask = c.sched.Every(memoryTaskName, c.cfg.MemorySampleInterval, func(now time.Time) {
		c.sampleMemory(prober, now)
	})
	return c.memTask != nil
}

// Close tears down the vitals subscription and the memory timer.
// Idempotent.
func (c *Collector) Close() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.closed = true
	if c.unsubVitals != nil {
		c.unsubVitals()
		c.unsubVitals = nil
	}
	if c.memTask != nil {
		c.memTask.Cancel()
		c.memTask = nil
	}
}

// Vitals returns the last value per vital kind
func (c *Collector) Vitals() map[VitalKind]WebVital {
	c.vitalsMu.RLock()
	defer c.vitalsMu.RUnlock()

	out := make(map[VitalKind]WebVital, len(c.vitals))
	for k, v := range c.vitals {
		out[k] = v
	}
	return out
}

// Renders returns a snapshot of the retained render series
func (c *Collector) Renders() []RenderMetric {
	return c.renders.Snapshot()
}

// Interactions returns a snapshot of the retained interaction series
func (c *Collector) Interactions() []InteractionMetric {
	return c.interactions.Snapshot()
}

// Network returns a snapshot of the retained network series
func (c *Collector) Network() []NetworkMetric {
	return c.network.Snapshot()
}

// MemorySamples returns a snapshot of the retained memory series
func (c *Collector) MemorySamples() []metrics.MemorySample {
	return c.memory.Snapshot()
}

func (c *Collector) recordVital(entry VitalEntry) {
	defer c.recoverRecording("vital")

	at := entry.At
	if at.IsZero() {
		at = c.now()
	}
	switch entry.Kind {
	case VitalLCP, VitalFID, VitalCLS:
	default:
		return
	}

	c.vitalsMu.Lock()
	c.vitals[entry.Kind] = WebVital{Kind: entry.Kind, Value: entry.Value, Timestamp: at}
	c.vitalsMu.Unlock()
}

func (c *Collector) sampleMemory(prober MemoryProber, now time.Time) {
	defer c.recoverRecording("memory")

	used, total, ok := prober.HeapUsage()
	if !ok || total == 0 {
		return
	}
	if now.IsZero() {
		now = c.now()
	}

	ratio := float64(used) / float64(total)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	c.memory.Push(metrics.MemorySample{
		Timestamp: now,
		UsedRatio: ratio,
		HeapUsed:  used,
		HeapTotal: total,
	})

	if v := c.detector.Evaluate(c.memoryRatios()); v.Signal == trend.Drift {
		c.observe(alerts.Observation{
			Type:      alerts.TypeMemoryLeak,
			Source:    "client",
			Value:     v.RecentMean,
			Threshold: c.detector.AbsoluteThreshold,
			At:        now,
			Data:      map[string]any{"older_mean": v.OlderMean},
		})
	}
}

func (c *Collector) memoryRatios() []float64 {
	samples := c.memory.Snapshot()
	ratios := make([]float64, len(samples))
	for i, s := range samples {
		ratios[i] = s.UsedRatio
	}
	return ratios
}

func (c *Collector) observe(obs alerts.Observation) {
	if c.sink == nil {
		return
	}
	c.sink.Submit(obs)
}

func (c *Collector) recoverRecording(kind string) {
	if r := recover(); r != nil {
		logger.Errorf(context.Background(), "client metric recording panic (%s): %v", kind, r)
	}
}
