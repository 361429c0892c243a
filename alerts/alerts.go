package alerts

import "time"

// Type identifies an alert category
type Type string

const (
	// server side
	TypeSlowRequest Type = "slow_request"
	TypeErrorRate   Type = "error_rate"
	TypeSlowQuery   Type = "slow_query"
	TypeHighMemory  Type = "high_memory"

	// client side
	TypeSlowRender      Type = "slow_render"
	TypeSlowInteraction Type = "slow_interaction"
	TypeLargePayload    Type = "large_payload"
	TypeMemoryLeak      Type = "memory_leak"
)

// Observation is a classified measurement handed to the engine by a
// collector. Collectors never create alerts themselves; they only
// describe what they saw.
type Observation struct {
	Type      Type
	Key       string // optional sub-key, e.g. endpoint or component name
	Source    string
	Value     float64
	Threshold float64
	At        time.Time
	Data      map[string]any
}

// Alert is an emitted, retained alert record
type Alert struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Sink accepts observations from collectors, fire-and-forget
type Sink interface {
	Submit(Observation)
}

// Notifier receives emitted alerts. Delivery beyond this callback is an
// external concern.
type Notifier interface {
	Notify(Alert)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(Alert)

func (f NotifierFunc) Notify(a Alert) {
	f(a)
}
