package client

import (
	"sync"
	"testing"
	"time"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/schedule"
)

type captureSink struct {
	mu  sync.Mutex
	obs []alerts.Observation
}

func (s *captureSink) Submit(o alerts.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, o)
}

func (s *captureSink) all() []alerts.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alerts.Observation(nil), s.obs...)
}

func (s *captureSink) byType(t alerts.Type) []alerts.Observation {
	var out []alerts.Observation
	for _, o := range s.all() {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeVitalsSource struct {
	mu        sync.Mutex
	fn        func(VitalEntry)
	cancelled bool
}

func (s *fakeVitalsSource) Subscribe(fn func(VitalEntry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled = true
		s.fn = nil
	}
}

func (s *fakeVitalsSource) emit(e VitalEntry) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

type fakeMemoryProber struct {
	mu    sync.Mutex
	used  uint64
	total uint64
	ok    bool
}

func (p *fakeMemoryProber) HeapUsage() (uint64, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used, p.total, p.ok
}

func (p *fakeMemoryProber) set(used, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used, p.total, p.ok = used, total, true
}

type fakeEnvironment struct {
	prober *fakeMemoryProber
	vitals *fakeVitalsSource
}

func (e *fakeEnvironment) Memory() (MemoryProber, bool) {
	if e.prober == nil {
		return nil, false
	}
	return e.prober, true
}

func (e *fakeEnvironment) Vitals() (VitalsSource, bool) {
	if e.vitals == nil {
		return nil, false
	}
	return e.vitals, true
}

func newTestCollector(t *testing.T, env Environment, sink alerts.Sink, sched *schedule.Scheduler) (*Collector, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewCollector(config.Default().Client, config.Default().Trend, sink, env, sched, WithNow(clk.Now))
	t.Cleanup(c.Close)
	return c, clk
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEndRenderRecordsDuration(t *testing.T) {
	sink := &captureSink{}
	c, clk := newTestCollector(t, NoEnvironment{}, sink, nil)

	token := c.StartRender()
	clk.Advance(5 * time.Millisecond)
	c.EndRender(token, "Dashboard")

	renders := c.Renders()
	if len(renders) != 1 {
		t.Fatalf("expected 1 render, got %d", len(renders))
	}
	if renders[0].Component != "Dashboard" {
		t.Errorf("expected component Dashboard, got %s", renders[0].Component)
	}
	if renders[0].Duration != 5*time.Millisecond {
		t.Errorf("expected duration 5ms, got %v", renders[0].Duration)
	}
	if len(sink.all()) != 0 {
		t.Errorf("fast render should not produce an observation")
	}
}

func TestEndRenderSlowProducesObservation(t *testing.T) {
	sink := &captureSink{}
	c, clk := newTestCollector(t, NoEnvironment{}, sink, nil)

	token := c.StartRender()
	clk.Advance(config.Default().Client.SlowRenderThreshold + 10*time.Millisecond)
	c.EndRender(token, "HeavyChart")

	obs := sink.byType(alerts.TypeSlowRender)
	if len(obs) != 1 {
		t.Fatalf("expected 1 slow render observation, got %d", len(obs))
	}
	if obs[0].Key != "HeavyChart" {
		t.Errorf("expected key HeavyChart, got %s", obs[0].Key)
	}
	if obs[0].Source != "client" {
		t.Errorf("expected source client, got %s", obs[0].Source)
	}
}

func TestEndRenderZeroTokenDiscarded(t *testing.T) {
	c, _ := newTestCollector(t, NoEnvironment{}, nil, nil)

	c.EndRender(RenderToken{}, "Orphan")

	if n := len(c.Renders()); n != 0 {
		t.Errorf("expected 0 renders for a zero token, got %d", n)
	}
}

func TestTrackInteraction(t *testing.T) {
	sink := &captureSink{}
	c, clk := newTestCollector(t, NoEnvironment{}, sink, nil)

	start := clk.Now()
	clk.Advance(50 * time.Millisecond)
	c.TrackInteraction("button_click", start)

	slowStart := clk.Now()
	clk.Advance(250 * time.Millisecond)
	c.TrackInteraction("menu_open", slowStart)

	if n := len(c.Interactions()); n != 2 {
		t.Fatalf("expected 2 interactions, got %d", n)
	}
	obs := sink.byType(alerts.TypeSlowInteraction)
	if len(obs) != 1 {
		t.Fatalf("expected 1 slow interaction observation, got %d", len(obs))
	}
	if obs[0].Key != "menu_open" {
		t.Errorf("expected key menu_open, got %s", obs[0].Key)
	}
}

func TestTrackNetworkLargePayload(t *testing.T) {
	sink := &captureSink{}
	c, _ := newTestCollector(t, NoEnvironment{}, sink, nil)

	c.TrackNetwork("/api/items", "GET", 40*time.Millisecond, 512, 200)
	c.TrackNetwork("/api/export", "GET", 300*time.Millisecond, 5<<20, 200)

	if n := len(c.Network()); n != 2 {
		t.Fatalf("expected 2 network metrics, got %d", n)
	}
	obs := sink.byType(alerts.TypeLargePayload)
	if len(obs) != 1 {
		t.Fatalf("expected 1 large payload observation, got %d", len(obs))
	}
	if obs[0].Key != "/api/export" {
		t.Errorf("expected key /api/export, got %s", obs[0].Key)
	}
	if obs[0].Value != float64(5<<20) {
		t.Errorf("expected value %d, got %v", 5<<20, obs[0].Value)
	}
}

func TestObserveWebVitalsLastValueWins(t *testing.T) {
	vitals := &fakeVitalsSource{}
	env := &fakeEnvironment{vitals: vitals}
	c, clk := newTestCollector(t, env, nil, nil)

	if !c.ObserveWebVitals() {
		t.Fatal("expected vitals subscription to succeed")
	}
	if !c.ObserveWebVitals() {
		t.Error("repeated call should stay subscribed")
	}

	vitals.emit(VitalEntry{Kind: VitalLCP, Value: 1800, At: clk.Now()})
	vitals.emit(VitalEntry{Kind: VitalLCP, Value: 2400, At: clk.Now()})
	vitals.emit(VitalEntry{Kind: VitalCLS, Value: 0.04, At: clk.Now()})
	vitals.emit(VitalEntry{Kind: "bogus", Value: 1})

	got := c.Vitals()
	if len(got) != 2 {
		t.Fatalf("expected 2 vital kinds, got %d", len(got))
	}
	if got[VitalLCP].Value != 2400 {
		t.Errorf("expected latest LCP 2400, got %v", got[VitalLCP].Value)
	}
	if got[VitalCLS].Value != 0.04 {
		t.Errorf("expected CLS 0.04, got %v", got[VitalCLS].Value)
	}
}

func TestObserveWebVitalsUnsupported(t *testing.T) {
	c, _ := newTestCollector(t, NoEnvironment{}, nil, nil)

	if c.ObserveWebVitals() {
		t.Error("expected false when the host has no vitals source")
	}

	// everything else keeps working
	token := c.StartRender()
	c.EndRender(token, "Widget")
	if n := len(c.Renders()); n != 1 {
		t.Errorf("expected render recording to keep working, got %d", n)
	}
}

func TestMonitorMemorySamplesViaScheduler(t *testing.T) {
	prober := &fakeMemoryProber{}
	prober.set(50, 100)
	env := &fakeEnvironment{prober: prober}

	clk := schedule.NewFakeClock(time.Unix(1700000000, 0))
	sched := schedule.New(clk)
	defer sched.Stop()

	c := NewCollector(config.Default().Client, config.Default().Trend, nil, env, sched, WithNow(clk.Now))
	defer c.Close()

	if !c.MonitorMemory() {
		t.Fatal("expected memory monitoring to start")
	}
	if !c.MonitorMemory() {
		t.Error("repeated call should stay monitoring")
	}

	interval := config.Default().Client.MemorySampleInterval
	clk.Advance(interval)
	waitFor(t, func() bool { return len(c.MemorySamples()) == 1 })

	sample := c.MemorySamples()[0]
	if sample.UsedRatio != 0.5 {
		t.Errorf("expected used ratio 0.5, got %v", sample.UsedRatio)
	}
	if sample.HeapUsed != 50 || sample.HeapTotal != 100 {
		t.Errorf("unexpected heap figures: %+v", sample)
	}
}

func TestMonitorMemoryUnsupported(t *testing.T) {
	clk := schedule.NewFakeClock(time.Unix(1700000000, 0))
	sched := schedule.New(clk)
	defer sched.Stop()

	c := NewCollector(config.Default().Client, config.Default().Trend, nil, NoEnvironment{}, sched)
	defer c.Close()

	if c.MonitorMemory() {
		t.Error("expected false when the host has no memory API")
	}
}

func TestMemoryLeakDriftObservation(t *testing.T) {
	prober := &fakeMemoryProber{}
	env := &fakeEnvironment{prober: prober}
	sink := &captureSink{}

	clk := schedule.NewFakeClock(time.Unix(1700000000, 0))
	sched := schedule.New(clk)
	defer sched.Stop()

	trendCfg := &config.Trend{WindowSize: 3, DeltaThreshold: 0.1, AbsoluteThreshold: 0.8}
	c := NewCollector(config.Default().Client, trendCfg, sink, env, sched, WithNow(clk.Now))
	defer c.Close()

	if !c.MonitorMemory() {
		t.Fatal("expected memory monitoring to start")
	}

	interval := config.Default().Client.MemorySampleInterval
	ratios := []uint64{50, 52, 54, 90, 92, 94}
	for i, used := range ratios {
		prober.set(used, 100)
		clk.Advance(interval)
		waitFor(t, func() bool { return len(c.MemorySamples()) == i+1 })
	}

	obs := sink.byType(alerts.TypeMemoryLeak)
	if len(obs) == 0 {
		t.Fatal("expected a memory leak observation after sustained growth")
	}
	if obs[0].Source != "client" {
		t.Errorf("expected source client, got %s", obs[0].Source)
	}
}

func TestCloseIdempotent(t *testing.T) {
	vitals := &fakeVitalsSource{}
	prober := &fakeMemoryProber{}
	prober.set(10, 100)
	env := &fakeEnvironment{prober: prober, vitals: vitals}

	clk := schedule.NewFakeClock(time.Unix(1700000000, 0))
	sched := schedule.New(clk)
	defer sched.Stop()

	c := NewCollector(config.Default().Client, config.Default().Trend, nil, env, sched, WithNow(clk.Now))
	c.ObserveWebVitals()
	c.MonitorMemory()

	c.Close()
	c.Close()

	vitals.mu.Lock()
	cancelled := vitals.cancelled
	vitals.mu.Unlock()
	if !cancelled {
		t.Error("expected the vitals subscription to be cancelled")
	}

	if c.ObserveWebVitals() {
		t.Error("a closed collector must not resubscribe")
	}
	if c.MonitorMemory() {
		t.Error("a closed collector must not restart monitoring")
	}
}

func TestNilEnvironmentBehavesLikeNone(t *testing.T) {
	c := NewCollector(config.Default().Client, config.Default().Trend, nil, nil, nil)
	defer c.Close()

	if c.ObserveWebVitals() {
		t.Error("nil environment should expose no vitals")
	}
	if c.MonitorMemory() {
		t.Error("nil environment should expose no memory API")
	}
}

func BenchmarkEndRender(b *testing.B) {
	c := NewCollector(config.Default().Client, config.Default().Trend, nil, NoEnvironment{}, nil)
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token := c.StartRender()
		c.EndRender(token, "bench")
	}
}
