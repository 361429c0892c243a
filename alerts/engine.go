package alerts

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/nanoid"
	"github.com/pulseobs/pulse/retention"
)

// EngineMetrics tracks emission and suppression counts
type EngineMetrics struct {
	Emitted    atomic.Int64
	Suppressed atomic.Int64
}

type cooldownKey struct {
	alertType Type
	key       string
}

// Engine evaluates observations against per-(type,key) cooldowns and
// retains emitted alerts in a time-bounded store. Suppression is silent;
// repeated observations inside the cooldown are intentional noise control,
// not errors.
type Engine struct {
	cooldown    time.Duration
	lastEmitted map[cooldownKey]time.Time
	store       *retention.Window[Alert]
	notifiers   []Notifier
	now         func() time.Time
	metrics     *EngineMetrics
	mu          sync.Mutex
}

// NewEngine creates an alert engine. A nil now func means wall-clock time.
func NewEngine(cfg *config.Alerts, now func() time.Time) *Engine {
	if cfg == nil {
		cfg = config.Default().Alerts
	}
	if now == nil {
		now = time.Now
	}

	return &Engine{
		cooldown:    cfg.Cooldown,
		lastEmitted: make(map[cooldownKey]time.Time),
		store:       retention.NewWindow[Alert](cfg.Retention),
		now:         now,
		metrics:     &EngineMetrics{},
	}
}

// AddNotifier registers a delivery callback for emitted alerts
func (e *Engine) AddNotifier(n Notifier) {
	if n == nil {
		return
	}
	e.mu.Lock()
	e.notifiers = append(e.notifiers, n)
	e.mu.Unlock()
}

// Evaluate emits an alert for the observation unless one with the same
// (type,key) was emitted within the cooldown. Returns nil on suppression.
func (e *Engine) Evaluate(obs Observation) *Alert {
	now := obs.At
	if now.IsZero() {
		now = e.now()
	}
	ck := cooldownKey{alertType: obs.Type, key: obs.Key}

	e.mu.Lock()
	if last, ok := e.lastEmitted[ck]; ok && now.Sub(last) <= e.cooldown {
		e.mu.Unlock()
		e.metrics.Suppressed.Add(1)
		return nil
	}
	e.lastEmitted[ck] = now

	alert := Alert{
		ID:        nanoid.Lower(),
		Type:      obs.Type,
		Message:   message(obs),
		Timestamp: now,
		Data:      payload(obs),
	}
	e.store.Push(alert, now)
	notifiers := make([]Notifier, len(e.notifiers))
	copy(notifiers, e.notifiers)
	e.mu.Unlock()

	e.metrics.Emitted.Add(1)
	for _, n := range notifiers {
		n.Notify(alert)
	}
	return &alert
}

// Recent returns retained alerts, oldest first
func (e *Engine) Recent() []Alert {
	return e.store.Snapshot(e.now())
}

// Sweep drops alerts older than the retention period
func (e *Engine) Sweep(now time.Time) int {
	return e.store.Sweep(now)
}

// Clear drops all retained alerts and resets cooldown state
func (e *Engine) Clear() {
	e.mu.Lock()
	e.lastEmitted = make(map[cooldownKey]time.Time)
	e.mu.Unlock()
	e.store.Clear()
}

// GetMetrics returns current engine metrics
func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"emitted":    e.metrics.Emitted.Load(),
		"suppressed": e.metrics.Suppressed.Load(),
		"retained":   int64(e.store.Len()),
	}
}

func message(obs Observation) string {
	subject := obs.Key
	if subject == "" {
		subject = obs.Source
	}
	if subject == "" {
		return string(obs.Type)
	}
	return fmt.Sprintf("%s: %s (%.2f over threshold %.2f)", obs.Type, subject, obs.Value, obs.Threshold)
}

// payload carries enough context to act on the alert without re-querying
// any store
func payload(obs Observation) map[string]any {
	data := map[string]any{
		"value":     obs.Value,
		"threshold": obs.Threshold,
	}
	if obs.Source != "" {
		data["source"] = obs.Source
	}
	if obs.Key != "" {
		data["key"] = obs.Key
	}
	for k, v := range obs.Data {
		data[k] = v
	}
	return data
}
