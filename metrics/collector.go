package metrics

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/retention"
	"github.com/pulseobs/pulse/trend"
)

// Token marks the start of an in-flight request
type Token struct {
	start time.Time
}

// MemoryReader probes the process heap. The default reads
// runtime.MemStats; a nil reader disables memory sampling entirely.
type MemoryReader func() (heapUsed, heapTotal uint64, ok bool)

// RuntimeMemory reads heap usage from the Go runtime
func RuntimeMemory() (uint64, uint64, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys == 0 {
		return 0, 0, false
	}
	return ms.HeapAlloc, ms.HeapSys, true
}

// Collector instruments the request-serving side: per-request timing,
// per-query timing, and periodic heap sampling. Recording is safe under
// concurrent requests and never panics into the caller's request path.
type Collector struct {
	cfg      *config.Server
	sink     alerts.Sink
	detector trend.Detector
	readMem  MemoryReader

	requests *retention.Ring[RequestMetric]
	queries  *retention.Ring[QueryMetric]
	memory   *retention.Ring[MemorySample]

	endpoints map[string]*EndpointStats
	epMu      sync.Mutex

	totalRequests        atomic.Int64
	slowRequests         atomic.Int64
	errorRequests        atomic.Int64
	requestDurationNanos atomic.Int64

	totalQueries       atomic.Int64
	slowQueries        atomic.Int64
	failedQueries      atomic.Int64
	queryDurationNanos atomic.Int64

	startTime time.Time
	now       func() time.Time
}

// Option customizes the collector
type Option func(*Collector)

// WithNow injects the time source, for tests
func WithNow(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithMemoryReader replaces the heap probe. Pass nil to disable memory
// sampling (capability absent).
func WithMemoryReader(r MemoryReader) Option {
	return func(c *Collector) {
		c.readMem = r
	}
}

// NewCollector creates a server-side collector. The sink receives
// classified observations; a nil sink disables alerting but not
// collection.
func NewCollector(cfg *config.Server, trendCfg *config.Trend, sink alerts.Sink, opts ...Option) *Collector {
	if cfg == nil {
		cfg = config.Default().Server
	}
	if trendCfg == nil {
		trendCfg = config.Default().Trend
	}

	c := &Collector{
		cfg:  cfg,
		sink: sink,
		detector: trend.Detector{
			WindowSize:        trendCfg.WindowSize,
			DeltaThreshold:    trendCfg.DeltaThreshold,
			AbsoluteThreshold: trendCfg.AbsoluteThreshold,
		},
		readMem:   RuntimeMemory,
		requests:  retention.NewRing[RequestMetric](cfg.RequestCapacity),
		queries:   retention.NewRing[QueryMetric](cfg.QueryCapacity),
		memory:    retention.NewRing[MemorySample](cfg.MemoryCapacity),
		endpoints: make(map[string]*EndpointStats),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startTime = c.now()
	return c
}

// StartRequest marks request entry and returns an opaque start marker
func (c *Collector) StartRequest() Token {
	return Token{start: c.now()}
}

// EndRequest records a completed request. Any internal fault is logged
// and swallowed; the observed request path is never affected.
func (c *Collector) EndRequest(token Token, endpoint string, statusCode int) {
	defer c.recoverRecording("request")

	now := c.now()
	if token.start.IsZero() {
		return
	}
	duration := now.Sub(token.start)
	if duration < 0 {
		return
	}

	c.requests.Push(RequestMetric{
		Endpoint:   endpoint,
		Duration:   duration,
		StatusCode: statusCode,
		Timestamp:  now,
	})

	c.totalRequests.Add(1)
	c.requestDurationNanos.Add(duration.Nanoseconds())
	c.recordEndpoint(endpoint, duration)

	slow := duration > c.cfg.SlowRequestThreshold
	failed := statusCode >= 400
	if slow {
		c.slowRequests.Add(1)
		c.observe(alerts.Observation{
			Type:      alerts.TypeSlowRequest,
			Key:       endpoint,
			Source:    "server",
			Value:     float64(duration.Milliseconds()),
			Threshold: float64(c.cfg.SlowRequestThreshold.Milliseconds()),
			At:        now,
			Data:      map[string]any{"status_code": statusCode},
		})
	}
	if failed {
		c.errorRequests.Add(1)
		c.observe(alerts.Observation{
			Type:      alerts.TypeErrorRate,
			Key:       endpoint,
			Source:    "server",
			Value:     float64(statusCode),
			Threshold: 400,
			At:        now,
		})
	}
}

// TrackQuery records a data-access operation. A negative row count means
// unknown.
func (c *Collector) TrackQuery(fingerprint string, duration time.Duration, failed bool, rowCount int64) {
	defer c.recoverRecording("query")

	if duration < 0 {
		return
	}
	now := c.now()

	c.queries.Push(QueryMetric{
		Fingerprint: fingerprint,
		Duration:    duration,
		Failed:      failed,
		RowCount:    rowCount,
		Timestamp:   now,
	})

	c.totalQueries.Add(1)
	c.queryDurationNanos.Add(duration.Nanoseconds())
	if failed {
		c.failedQueries.Add(1)
	}
	if duration > c.cfg.SlowQueryThreshold {
		c.slowQueries.Add(1)
		c.observe(alerts.Observation{
			Type:      alerts.TypeSlowQuery,
			Key:       fingerprint,
			Source:    "server",
			Value:     float64(duration.Milliseconds()),
			Threshold: float64(c.cfg.SlowQueryThreshold.Milliseconds()),
			At:        now,
		})
	}
}

// SampleMemory probes the heap once, retains the sample, and feeds the
// drift detector. Called by the scheduler; safe to call manually.
func (c *Collector) SampleMemory(now time.Time) {
	defer c.recoverRecording("memory")

	if c.readMem == nil {
		return
	}
	used, total, ok := c.readMem()
	if !ok || total == 0 {
		return
	}
	if now.IsZero() {
		now = c.now()
	}

	ratio := clampRatio(float64(used) / float64(total))
	c.memory.Push(MemorySample{
		Timestamp: now,
		UsedRatio: ratio,
		HeapUsed:  used,
		HeapTotal: total,
	})

	if ratio >= c.cfg.MemoryAlertRatio {
		c.observe(alerts.Observation{
			Type:      alerts.TypeHighMemory,
			Source:    "server",
			Value:     ratio,
			Threshold: c.cfg.MemoryAlertRatio,
			At:        now,
			Data:      map[string]any{"heap_used": used, "heap_total": total},
		})
	}

	if v := c.detector.Evaluate(c.memoryRatios()); v.Signal == trend.Drift {
		c.observe(alerts.Observation{
			Type:      alerts.TypeMemoryLeak,
			Source:    "server",
			Value:     v.RecentMean,
			Threshold: c.detector.AbsoluteThreshold,
			At:        now,
			Data:      map[string]any{"older_mean": v.OlderMean},
		})
	}
}

// Aggregates returns a value snapshot of everything recorded so far
func (c *Collector) Aggregates() Aggregates {
	agg := Aggregates{
		Uptime:               c.now().Sub(c.startTime),
		TotalRequests:        c.totalRequests.Load(),
		SlowRequests:         c.slowRequests.Load(),
		ErrorRequests:        c.errorRequests.Load(),
		TotalRequestDuration: time.Duration(c.requestDurationNanos.Load()),
		TotalQueries:         c.totalQueries.Load(),
		SlowQueries:          c.slowQueries.Load(),
		FailedQueries:        c.failedQueries.Load(),
		TotalQueryDuration:   time.Duration(c.queryDurationNanos.Load()),
	}

	if sample, ok := c.memory.Last(); ok {
		agg.MemorySupported = true
		agg.MemoryUsedRatio = sample.UsedRatio
		agg.HeapUsed = sample.HeapUsed
		agg.HeapTotal = sample.HeapTotal
	}
	return agg
}

// TopEndpoints returns the n busiest endpoints by call count
func (c *Collector) TopEndpoints(n int) []EndpointStats {
	c.epMu.Lock()
	stats := make([]EndpointStats, 0, len(c.endpoints))
	for _, s := range c.endpoints {
		stats = append(stats, *s)
	}
	c.epMu.Unlock()

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// Requests returns a snapshot of the retained request series
func (c *Collector) Requests() []RequestMetric {
	return c.requests.Snapshot()
}

// Queries returns a snapshot of the retained query series
func (c *Collector) Queries() []QueryMetric {
	return c.queries.Snapshot()
}

// MemorySamples returns a snapshot of the retained memory series
func (c *Collector) MemorySamples() []MemorySample {
	return c.memory.Snapshot()
}

func (c *Collector) memoryRatios() []float64 {
	samples := c.memory.Snapshot()
	ratios := make([]float64, len(samples))
	for i, s := range samples {
		ratios[i] = s.UsedRatio
	}
	return ratios
}

func (c *Collector) recordEndpoint(endpoint string, duration time.Duration) {
	c.epMu.Lock()
	defer c.epMu.Unlock()

	s, ok := c.endpoints[endpoint]
	if !ok {
		s = &EndpointStats{Endpoint: endpoint}
		c.endpoints[endpoint] = s
	}
	s.Count++
	s.TotalDuration += duration
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}
}

func (c *Collector) observe(obs alerts.Observation) {
	if c.sink == nil {
		return
	}
	c.sink.Submit(obs)
}

func (c *Collector) recoverRecording(kind string) {
	if r := recover(); r != nil {
		logger.Errorf(context.Background(), "metric recording panic (%s): %v", kind, r)
	}
}

func clampRatio(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
