package config

import "github.com/google/wire"

// ProviderSet is the wire provider set for the config package.
// It provides the main *Config and extracts sub-configurations for
// other modules to use.
var ProviderSet = wire.NewSet(
	Default,
	ProvideServerConfig,
	ProvideClientConfig,
	ProvideAlertsConfig,
	ProvideTrendConfig,
	ProvideReportConfig,
	ProvideHTTPConfig,
	ProvideLoggerConfig,
	ProvideSentryConfig,
)

// ProvideServerConfig provides the server collector configuration.
func ProvideServerConfig(cfg *Config) *Server {
	if cfg == nil {
		return nil
	}
	return cfg.Server
}

// ProvideClientConfig provides the client collector configuration.
func ProvideClientConfig(cfg *Config) *Client {
	if cfg == nil {
		return nil
	}
	return cfg.Client
}

// ProvideAlertsConfig provides the alert engine configuration.
func ProvideAlertsConfig(cfg *Config) *Alerts {
	if cfg == nil {
		return nil
	}
	return cfg.Alerts
}

// ProvideTrendConfig provides the drift detection configuration.
func ProvideTrendConfig(cfg *Config) *Trend {
	if cfg == nil {
		return nil
	}
	return cfg.Trend
}

// ProvideReportConfig provides the report configuration.
func ProvideReportConfig(cfg *Config) *Report {
	if cfg == nil {
		return nil
	}
	return cfg.Report
}

// ProvideHTTPConfig provides the HTTP listener configuration.
func ProvideHTTPConfig(cfg *Config) *HTTP {
	if cfg == nil {
		return nil
	}
	return cfg.HTTP
}

// ProvideLoggerConfig provides the logger configuration.
func ProvideLoggerConfig(cfg *Config) *Logger {
	if cfg == nil {
		return nil
	}
	return cfg.Logger
}

// ProvideSentryConfig provides the sentry configuration.
func ProvideSentryConfig(cfg *Config) *Sentry {
	if cfg == nil {
		return nil
	}
	return cfg.Sentry
}
