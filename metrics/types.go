package metrics

import "time"

// RequestMetric records one completed HTTP request. Immutable once
// recorded.
type RequestMetric struct {
	Endpoint   string        `json:"endpoint"` // method + route, e.g. "GET /contacts"
	Duration   time.Duration `json:"duration_ms"`
	StatusCode int           `json:"status_code"`
	Timestamp  time.Time     `json:"timestamp"`
}

// QueryMetric records one data-access operation. The fingerprint is the
// normalized query shape, never literal parameter values.
type QueryMetric struct {
	Fingerprint string        `json:"fingerprint"`
	Duration    time.Duration `json:"duration_ms"`
	Failed      bool          `json:"error"`
	RowCount    int64         `json:"row_count,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// MemorySample records heap usage at one instant. UsedRatio is clamped
// to [0,1] at ingestion.
type MemorySample struct {
	Timestamp time.Time `json:"timestamp"`
	UsedRatio float64   `json:"used_ratio"`
	HeapUsed  uint64    `json:"heap_used"`
	HeapTotal uint64    `json:"heap_total"`
}

// EndpointStats is the per-endpoint aggregate used for top-endpoint
// reporting
type EndpointStats struct {
	Endpoint      string        `json:"endpoint"`
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"-"`
	MaxDuration   time.Duration `json:"max_duration_ms"`
}

// AvgDuration returns the mean request duration for the endpoint
func (s EndpointStats) AvgDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// Aggregates is the derived summary of everything the collector has
// seen. It is a value snapshot; reading it never locks the collector
// longer than the copy.
type Aggregates struct {
	Uptime time.Duration

	TotalRequests        int64
	SlowRequests         int64
	ErrorRequests        int64
	TotalRequestDuration time.Duration

	TotalQueries       int64
	SlowQueries        int64
	FailedQueries      int64
	TotalQueryDuration time.Duration

	MemorySupported bool
	MemoryUsedRatio float64
	HeapUsed        uint64
	HeapTotal       uint64
}

// ErrorRate returns the fraction of requests with status >= 400
func (a Aggregates) ErrorRate() float64 {
	return rate(a.ErrorRequests, a.TotalRequests)
}

// SlowRate returns the fraction of requests over the slow threshold
func (a Aggregates) SlowRate() float64 {
	return rate(a.SlowRequests, a.TotalRequests)
}

// SlowQueryRate returns the fraction of queries over the slow threshold
func (a Aggregates) SlowQueryRate() float64 {
	return rate(a.SlowQueries, a.TotalQueries)
}

// AvgRequestDuration returns the mean request duration
func (a Aggregates) AvgRequestDuration() time.Duration {
	if a.TotalRequests == 0 {
		return 0
	}
	return a.TotalRequestDuration / time.Duration(a.TotalRequests)
}

// AvgQueryDuration returns the mean query duration
func (a Aggregates) AvgQueryDuration() time.Duration {
	if a.TotalQueries == 0 {
		return 0
	}
	return a.TotalQueryDuration / time.Duration(a.TotalQueries)
}

// RequestsPerMinute returns the request throughput over the uptime
func (a Aggregates) RequestsPerMinute() float64 {
	minutes := a.Uptime.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(a.TotalRequests) / minutes
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
