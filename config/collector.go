package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Server holds the server-side collector options.
type Server struct {
	SlowRequestThreshold time.Duration
	SlowQueryThreshold   time.Duration
	MemoryAlertRatio     float64
	MemorySampleInterval time.Duration
	RequestCapacity      int
	QueryCapacity        int
	MemoryCapacity       int
}

// Validate validates the server collector options.
func (s *Server) Validate() error {
	if s.SlowRequestThreshold <= 0 {
		return fmt.Errorf("slow request threshold must be greater than 0, got %v", s.SlowRequestThreshold)
	}
	if s.SlowQueryThreshold <= 0 {
		return fmt.Errorf("slow query threshold must be greater than 0, got %v", s.SlowQueryThreshold)
	}
	if s.MemoryAlertRatio <= 0 || s.MemoryAlertRatio > 1 {
		return fmt.Errorf("memory alert ratio must be in (0,1], got %v", s.MemoryAlertRatio)
	}
	if s.MemorySampleInterval <= 0 {
		return fmt.Errorf("memory sample interval must be greater than 0, got %v", s.MemorySampleInterval)
	}
	return nil
}

func getServerConfig(v *viper.Viper) *Server {
	return &Server{
		SlowRequestThreshold: time.Duration(v.GetInt64("server.slow_request_threshold_ms")) * time.Millisecond,
		SlowQueryThreshold:   time.Duration(v.GetInt64("server.slow_query_threshold_ms")) * time.Millisecond,
		MemoryAlertRatio:     v.GetFloat64("server.memory_alert_ratio"),
		MemorySampleInterval: time.Duration(v.GetInt64("server.memory_sample_interval_ms")) * time.Millisecond,
		RequestCapacity:      v.GetInt("server.request_capacity"),
		QueryCapacity:        v.GetInt("server.query_capacity"),
		MemoryCapacity:       v.GetInt("server.memory_capacity"),
	}
}

// Client holds the client-side collector options.
type Client struct {
	SlowRenderThreshold      time.Duration
	SlowInteractionThreshold time.Duration
	LargePayloadBytes        int64
	MemorySampleInterval     time.Duration
	RenderCapacity           int
	InteractionCapacity      int
	NetworkCapacity          int
	MemoryCapacity           int
}

// Validate validates the client collector options.
func (c *Client) Validate() error {
	if c.SlowRenderThreshold <= 0 {
		return fmt.Errorf("slow render threshold must be greater than 0, got %v", c.SlowRenderThreshold)
	}
	if c.SlowInteractionThreshold <= 0 {
		return fmt.Errorf("slow interaction threshold must be greater than 0, got %v", c.SlowInteractionThreshold)
	}
	if c.LargePayloadBytes <= 0 {
		return fmt.Errorf("large payload bytes must be greater than 0, got %d", c.LargePayloadBytes)
	}
	if c.MemorySampleInterval <= 0 {
		return fmt.Errorf("memory sample interval must be greater than 0, got %v", c.MemorySampleInterval)
	}
	return nil
}

func getClientConfig(v *viper.Viper) *Client {
	return &Client{
		SlowRenderThreshold:      time.Duration(v.GetInt64("client.slow_render_threshold_ms")) * time.Millisecond,
		SlowInteractionThreshold: time.Duration(v.GetInt64("client.slow_interaction_threshold_ms")) * time.Millisecond,
		LargePayloadBytes:        v.GetInt64("client.large_payload_bytes"),
		MemorySampleInterval:     time.Duration(v.GetInt64("client.memory_sample_interval_ms")) * time.Millisecond,
		RenderCapacity:           v.GetInt("client.render_capacity"),
		InteractionCapacity:      v.GetInt("client.interaction_capacity"),
		NetworkCapacity:          v.GetInt("client.network_capacity"),
		MemoryCapacity:           v.GetInt("client.memory_capacity"),
	}
}
