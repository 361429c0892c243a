package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseobs/pulse/client"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/monitor"
	"github.com/pulseobs/pulse/validation/validator"
)

// Handler exposes the monitor over HTTP
type Handler struct {
	monitor *monitor.Monitor
}

// NewHandler creates a new handler.
func NewHandler(m *monitor.Monitor) *Handler {
	return &Handler{monitor: m}
}

// RegisterRoutes mounts the performance endpoints on the router
func RegisterRoutes(r gin.IRouter, m *monitor.Monitor) {
	h := NewHandler(m)
	g := r.Group("/performance")
	g.GET("/report", h.GetReport)
	g.GET("/health", h.GetHealth)
	g.POST("/beacon", h.PostBeacon)
}

// GetReport returns the full point-in-time snapshot.
func (h *Handler) GetReport(c *gin.Context) {
	Success(c, h.monitor.Report())
}

// GetHealth returns the composite score plus a coarse status label.
func (h *Handler) GetHealth(c *gin.Context) {
	score := h.monitor.HealthScore()

	status := "healthy"
	switch {
	case score < 50:
		status = "unhealthy"
	case score < 80:
		status = "degraded"
	}

	Success(c, gin.H{
		"status":       status,
		"health_score": score,
		"timestamp":    time.Now(),
	})
}

// BeaconRender is one remote render measurement
type BeaconRender struct {
	Component  string    `json:"component" validate:"required"`
	DurationMS float64   `json:"duration_ms" validate:"gte=0"`
	Timestamp  time.Time `json:"timestamp"`
}

// BeaconInteraction is one remote interaction measurement
type BeaconInteraction struct {
	Name      string    `json:"name" validate:"required"`
	DelayMS   float64   `json:"delay_ms" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// BeaconNetwork is one remote network measurement
type BeaconNetwork struct {
	URL        string    `json:"url" validate:"required"`
	Method     string    `json:"method" validate:"required"`
	DurationMS float64   `json:"duration_ms" validate:"gte=0"`
	SizeBytes  int64     `json:"size_bytes" validate:"gte=0"`
	Status     int       `json:"status" validate:"gte=0,lte=599"`
	Timestamp  time.Time `json:"timestamp"`
}

// BeaconVital is one remote vital reading
type BeaconVital struct {
	Kind      string    `json:"kind" validate:"required,oneof=LCP FID CLS"`
	Value     float64   `json:"value" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// BeaconPayload is a batch of measurements reported by a remote client
type BeaconPayload struct {
	Renders      []BeaconRender      `json:"renders" validate:"dive"`
	Interactions []BeaconInteraction `json:"interactions" validate:"dive"`
	Network      []BeaconNetwork     `json:"network" validate:"dive"`
	Vitals       []BeaconVital       `json:"vitals" validate:"dive"`
}

// PostBeacon ingests a batch of client-side measurements.
func (h *Handler) PostBeacon(c *gin.Context) {
	var payload BeaconPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Fail(c, BadRequest("invalid beacon payload"))
		return
	}
	if errs := validator.Struct(payload); errs != nil {
		Fail(c, BadRequest("invalid beacon payload", errs))
		return
	}

	cc := h.monitor.Client()
	for _, r := range payload.Renders {
		cc.RecordRender(client.RenderMetric{
			Component: r.Component,
			Duration:  msToDuration(r.DurationMS),
			Timestamp: r.Timestamp,
		})
	}
	for _, i := range payload.Interactions {
		cc.RecordInteraction(client.InteractionMetric{
			Name:      i.Name,
			Delay:     msToDuration(i.DelayMS),
			Timestamp: i.Timestamp,
		})
	}
	for _, n := range payload.Network {
		cc.RecordNetwork(client.NetworkMetric{
			URL:       n.URL,
			Method:    n.Method,
			Duration:  msToDuration(n.DurationMS),
			SizeBytes: n.SizeBytes,
			Status:    n.Status,
			Timestamp: n.Timestamp,
		})
	}
	for _, v := range payload.Vitals {
		cc.RecordVital(client.VitalEntry{
			Kind:  client.VitalKind(v.Kind),
			Value: v.Value,
			At:    v.Timestamp,
		})
	}

	logger.Debugf(c.Request.Context(), "beacon ingested: %d renders, %d interactions, %d network, %d vitals",
		len(payload.Renders), len(payload.Interactions), len(payload.Network), len(payload.Vitals))

	WithStatusCode(c, http.StatusAccepted, gin.H{"accepted": true})
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
