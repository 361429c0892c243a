package client

import "time"

// RenderMetric records one UI render cycle
type RenderMetric struct {
	Component string        `json:"component_name"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// InteractionMetric records the delay of one user interaction
type InteractionMetric struct {
	Name      string        `json:"name"`
	Delay     time.Duration `json:"delay_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// NetworkMetric records one network call made by the client
type NetworkMetric struct {
	URL       string        `json:"url"`
	Method    string        `json:"method"`
	Duration  time.Duration `json:"duration_ms"`
	SizeBytes int64         `json:"size_bytes"`
	Status    int           `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// VitalKind is one of the standard rendering-quality signals
type VitalKind string

const (
	VitalLCP VitalKind = "LCP" // Largest Contentful Paint
	VitalFID VitalKind = "FID" // First Input Delay
	VitalCLS VitalKind = "CLS" // Cumulative Layout Shift
)

// WebVital is the last observed value for one vital kind. Vitals are
// last-value-wins, not a series.
type WebVital struct {
	Kind      VitalKind `json:"kind"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// VitalEntry is a single notification pushed by the host environment
type VitalEntry struct {
	Kind  VitalKind
	Value float64
	At    time.Time
}
