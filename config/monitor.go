package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Alerts holds the alert engine options.
type Alerts struct {
	Cooldown      time.Duration
	Retention     time.Duration
	SweepInterval time.Duration
	QueueSize     int
}

// Validate validates the alert engine options.
func (a *Alerts) Validate() error {
	if a.Cooldown <= 0 {
		return fmt.Errorf("alert cooldown must be greater than 0, got %v", a.Cooldown)
	}
	if a.Retention <= 0 {
		return fmt.Errorf("alert retention must be greater than 0, got %v", a.Retention)
	}
	if a.QueueSize < 1 {
		return fmt.Errorf("alert queue size must be greater than 0, got %d", a.QueueSize)
	}
	return nil
}

func getAlertsConfig(v *viper.Viper) *Alerts {
	return &Alerts{
		Cooldown:      time.Duration(v.GetInt64("alerts.cooldown_ms")) * time.Millisecond,
		Retention:     time.Duration(v.GetInt64("alerts.retention_ms")) * time.Millisecond,
		SweepInterval: time.Duration(v.GetInt64("alerts.sweep_interval_ms")) * time.Millisecond,
		QueueSize:     v.GetInt("alerts.queue_size"),
	}
}

// Trend holds the drift detection options.
type Trend struct {
	WindowSize        int
	DeltaThreshold    float64
	AbsoluteThreshold float64
}

// Validate validates the drift detection options.
func (t *Trend) Validate() error {
	if t.WindowSize < 2 {
		return fmt.Errorf("trend window size must be at least 2, got %d", t.WindowSize)
	}
	if t.AbsoluteThreshold < 0 || t.AbsoluteThreshold > 1 {
		return fmt.Errorf("trend absolute threshold must be in [0,1], got %v", t.AbsoluteThreshold)
	}
	return nil
}

func getTrendConfig(v *viper.Viper) *Trend {
	return &Trend{
		WindowSize:        v.GetInt("trend.window_size"),
		DeltaThreshold:    v.GetFloat64("trend.delta_threshold"),
		AbsoluteThreshold: v.GetFloat64("trend.absolute_threshold"),
	}
}

// Report holds the report aggregation options.
type Report struct {
	TopEndpoints int
}

func getReportConfig(v *viper.Viper) *Report {
	return &Report{
		TopEndpoints: v.GetInt("report.top_endpoints"),
	}
}
