package monitor

import (
	"context"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/client"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/metrics"
)

// RequestReport summarizes the request side of the server collector
type RequestReport struct {
	Total       int64   `json:"total"`
	AvgDuration int64   `json:"avg_duration_ms"`
	SlowCount   int64   `json:"slow_count"`
	ErrorCount  int64   `json:"error_count"`
	SlowRate    float64 `json:"slow_rate"`
	ErrorRate   float64 `json:"error_rate"`
	PerMinute   float64 `json:"per_minute"`
}

// DatabaseReport summarizes data-access activity
type DatabaseReport struct {
	TotalQueries int64   `json:"total_queries"`
	AvgDuration  int64   `json:"avg_duration_ms"`
	SlowCount    int64   `json:"slow_count"`
	SlowRate     float64 `json:"slow_rate"`
}

// MemoryReport summarizes the latest heap observation
type MemoryReport struct {
	HeapUsed     uint64  `json:"heap_used"`
	HeapTotal    uint64  `json:"heap_total"`
	UsagePercent float64 `json:"usage_percent"`
}

// EndpointReport is one entry of the top-endpoints list
type EndpointReport struct {
	Endpoint    string `json:"endpoint"`
	Count       int64  `json:"count"`
	AvgDuration int64  `json:"avg_duration_ms"`
	MaxDuration int64  `json:"max_duration_ms"`
}

// AlertReport is one recent alert
type AlertReport struct {
	Type      alerts.Type    `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// ClientReport summarizes client-side instrumentation, present only
// when a client collector is attached
type ClientReport struct {
	RenderCount      int                          `json:"render_count"`
	InteractionCount int                          `json:"interaction_count"`
	NetworkCount     int                          `json:"network_count"`
	Vitals           map[client.VitalKind]float64 `json:"vitals,omitempty"`
}

// Report is a point-in-time snapshot of everything the monitor knows.
// Sections backed by an unavailable capability are nil and omitted from
// the JSON encoding.
type Report struct {
	UptimeMS     int64            `json:"uptime_ms"`
	Requests     *RequestReport   `json:"requests,omitempty"`
	Database     *DatabaseReport  `json:"database,omitempty"`
	Memory       *MemoryReport    `json:"memory,omitempty"`
	HealthScore  int              `json:"health_score"`
	TopEndpoints []EndpointReport `json:"top_endpoints"`
	RecentAlerts []AlertReport    `json:"recent_alerts"`
	Client       *ClientReport    `json:"client,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// Reporter assembles reports from the attached collectors. Build is a
// synchronous read with no side effects; a fault while reading one
// section drops that section only.
type Reporter struct {
	cfg    *config.Report
	server *metrics.Collector
	client *client.Collector
	engine *alerts.Engine
	now    func() time.Time
}

// NewReporter creates a reporter. The client collector may be nil for
// server-only deployments.
func NewReporter(cfg *config.Report, server *metrics.Collector, cc *client.Collector, engine *alerts.Engine) *Reporter {
	if cfg == nil {
		cfg = config.Default().Report
	}
	return &Reporter{
		cfg:    cfg,
		server: server,
		client: cc,
		engine: engine,
		now:    time.Now,
	}
}

// Build assembles the current report
func (r *Reporter) Build() Report {
	report := Report{
		TopEndpoints: []EndpointReport{},
		RecentAlerts: []AlertReport{},
		GeneratedAt:  r.now(),
	}

	r.section("server", func() {
		agg := r.server.Aggregates()

		report.UptimeMS = agg.Uptime.Milliseconds()
		report.HealthScore = Score(agg)
		report.Requests = &RequestReport{
			Total:       agg.TotalRequests,
			AvgDuration: agg.AvgRequestDuration().Milliseconds(),
			SlowCount:   agg.SlowRequests,
			ErrorCount:  agg.ErrorRequests,
			SlowRate:    agg.SlowRate(),
			ErrorRate:   agg.ErrorRate(),
			PerMinute:   agg.RequestsPerMinute(),
		}
		report.Database = &DatabaseReport{
			TotalQueries: agg.TotalQueries,
			AvgDuration:  agg.AvgQueryDuration().Milliseconds(),
			SlowCount:    agg.SlowQueries,
			SlowRate:     agg.SlowQueryRate(),
		}
		if agg.MemorySupported {
			report.Memory = &MemoryReport{
				HeapUsed:     agg.HeapUsed,
				HeapTotal:    agg.HeapTotal,
				UsagePercent: agg.MemoryUsedRatio * 100,
			}
		}
	})

	r.section("endpoints", func() {
		for _, ep := range r.server.TopEndpoints(r.cfg.TopEndpoints) {
			report.TopEndpoints = append(report.TopEndpoints, EndpointReport{
				Endpoint:    ep.Endpoint,
				Count:       ep.Count,
				AvgDuration: ep.AvgDuration().Milliseconds(),
				MaxDuration: ep.MaxDuration.Milliseconds(),
			})
		}
	})

	r.section("alerts", func() {
		if r.engine == nil {
			return
		}
		for _, a := range r.engine.Recent() {
			report.RecentAlerts = append(report.RecentAlerts, AlertReport{
				Type:      a.Type,
				Timestamp: a.Timestamp,
				Data:      a.Data,
			})
		}
	})

	r.section("client", func() {
		if r.client == nil {
			return
		}
		cr := &ClientReport{
			RenderCount:      len(r.client.Renders()),
			InteractionCount: len(r.client.Interactions()),
			NetworkCount:     len(r.client.Network()),
		}
		vitals := r.client.Vitals()
		if len(vitals) > 0 {
			cr.Vitals = make(map[client.VitalKind]float64, len(vitals))
			for k, v := range vitals {
				cr.Vitals[k] = v.Value
			}
		}
		report.Client = cr
	})

	return report
}

// section runs one report read, containing any panic to that section
func (r *Reporter) section(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf(context.Background(), "report section %s failed: %v", name, rec)
		}
	}()
	fn()
}
