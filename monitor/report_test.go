package monitor

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/metrics"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func recordRequests(c *metrics.Collector, clk *manualClock, endpoint string, n int, duration time.Duration, status int) {
	for i := 0; i < n; i++ {
		token := c.StartRequest()
		clk.Advance(duration)
		c.EndRequest(token, endpoint, status)
	}
}

func TestReportShape(t *testing.T) {
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	mem := func() (uint64, uint64, bool) { return 60, 100, true }
	collector := metrics.NewCollector(config.Default().Server, config.Default().Trend, nil,
		metrics.WithNow(clk.Now), metrics.WithMemoryReader(mem))

	recordRequests(collector, clk, "GET /items", 8, 20*time.Millisecond, 200)
	recordRequests(collector, clk, "POST /items", 2, 30*time.Millisecond, 500)
	collector.TrackQuery("SELECT items", 5*time.Millisecond, false, 3)
	collector.SampleMemory(clk.Now())

	reporter := NewReporter(config.Default().Report, collector, nil, nil)
	reporter.now = clk.Now
	report := reporter.Build()

	if report.Requests == nil {
		t.Fatal("expected a requests section")
	}
	if report.Requests.Total != 10 {
		t.Errorf("expected 10 requests, got %d", report.Requests.Total)
	}
	if report.Requests.ErrorCount != 2 || report.Requests.ErrorRate != 0.2 {
		t.Errorf("unexpected error figures: %+v", report.Requests)
	}
	if report.Database == nil || report.Database.TotalQueries != 1 {
		t.Fatalf("unexpected database section: %+v", report.Database)
	}
	if report.Memory == nil {
		t.Fatal("expected a memory section")
	}
	if report.Memory.UsagePercent != 60 {
		t.Errorf("expected usage 60%%, got %v", report.Memory.UsagePercent)
	}
	if len(report.TopEndpoints) != 2 {
		t.Fatalf("expected 2 top endpoints, got %d", len(report.TopEndpoints))
	}
	if report.TopEndpoints[0].Endpoint != "GET /items" {
		t.Errorf("expected GET /items first, got %s", report.TopEndpoints[0].Endpoint)
	}
	if report.HealthScore < 0 || report.HealthScore > 100 {
		t.Errorf("health score out of range: %d", report.HealthScore)
	}
}

func TestReportOmitsMemoryWhenUnsupported(t *testing.T) {
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	collector := metrics.NewCollector(config.Default().Server, config.Default().Trend, nil,
		metrics.WithNow(clk.Now), metrics.WithMemoryReader(nil))

	recordRequests(collector, clk, "GET /items", 3, 10*time.Millisecond, 200)
	collector.SampleMemory(clk.Now())

	reporter := NewReporter(config.Default().Report, collector, nil, nil)
	report := reporter.Build()

	if report.Memory != nil {
		t.Error("expected no memory section without a heap probe")
	}
	if report.Requests == nil || report.Database == nil {
		t.Error("remaining sections must survive the missing capability")
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	if strings.Contains(string(raw), `"memory"`) {
		t.Error("memory key must be omitted from the JSON encoding")
	}
	if !strings.Contains(string(raw), `"health_score"`) {
		t.Error("health_score must always be present")
	}
}

func TestReportIncludesRecentAlerts(t *testing.T) {
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	engine := alerts.NewEngine(config.Default().Alerts, clk.Now)
	collector := metrics.NewCollector(config.Default().Server, config.Default().Trend, nil,
		metrics.WithNow(clk.Now))

	engine.Evaluate(alerts.Observation{
		Type:   alerts.TypeSlowRequest,
		Key:    "GET /slow",
		Source: "server",
		Value:  3000,
		At:     clk.Now(),
	})

	reporter := NewReporter(config.Default().Report, collector, nil, engine)
	report := reporter.Build()

	if len(report.RecentAlerts) != 1 {
		t.Fatalf("expected 1 recent alert, got %d", len(report.RecentAlerts))
	}
	if report.RecentAlerts[0].Type != alerts.TypeSlowRequest {
		t.Errorf("unexpected alert type %s", report.RecentAlerts[0].Type)
	}
}

func TestReportTopEndpointsBounded(t *testing.T) {
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	collector := metrics.NewCollector(config.Default().Server, config.Default().Trend, nil,
		metrics.WithNow(clk.Now))

	endpoints := []string{"a", "b", "c", "d", "e"}
	for i, ep := range endpoints {
		recordRequests(collector, clk, "GET /"+ep, len(endpoints)-i, time.Millisecond, 200)
	}

	cfg := &config.Report{TopEndpoints: 3}
	report := NewReporter(cfg, collector, nil, nil).Build()

	if len(report.TopEndpoints) != 3 {
		t.Fatalf("expected top list capped at 3, got %d", len(report.TopEndpoints))
	}
	if report.TopEndpoints[0].Endpoint != "GET /a" {
		t.Errorf("expected busiest endpoint first, got %s", report.TopEndpoints[0].Endpoint)
	}
}

func TestReportSectionFaultIsContained(t *testing.T) {
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	collector := metrics.NewCollector(config.Default().Server, config.Default().Trend, nil,
		metrics.WithNow(clk.Now))
	recordRequests(collector, clk, "GET /ok", 2, time.Millisecond, 200)

	// a panic inside one section must not take down the rest
	reporter := NewReporter(config.Default().Report, collector, nil, nil)
	reporter.section("boom", func() {
		panic("section fault")
	})
	report := reporter.Build()

	if report.Requests == nil {
		t.Error("expected the requests section to survive")
	}
}
