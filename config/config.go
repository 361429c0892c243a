package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	config *Config
	mu     sync.Mutex
)

// Config represents the monitoring configuration.
type Config struct {
	AppName string
	Server  *Server
	Client  *Client
	Alerts  *Alerts
	Trend   *Trend
	Report  *Report
	HTTP    *HTTP
	Logger  *Logger
	Sentry  *Sentry
	Viper   *viper.Viper
}

// Default returns a configuration populated with the recognized defaults.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// Load loads the configuration from the given file, falling back to the
// defaults for every option the file does not set. An empty path loads
// pure defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("pulse")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/pulse")
		v.AddConfigPath("$HOME/.pulse")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Running config-free on defaults is supported; a broken file is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config = cfg
	return cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil if
// Load has not been called. Watch keeps it current.
func GetConfig() *Config {
	mu.Lock()
	defer mu.Unlock()
	return config
}

// Watch watches the configuration file and invokes the callback with the
// freshly loaded configuration when it changes.
func (c *Config) Watch(callback func(*Config)) {
	if c.Viper == nil {
		return
	}
	c.Viper.WatchConfig()
	c.Viper.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		next := fromViper(c.Viper)
		config = next
		mu.Unlock()
		callback(next)
	})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Alerts.Validate(); err != nil {
		return err
	}
	return c.Trend.Validate()
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName: v.GetString("app_name"),
		Server:  getServerConfig(v),
		Client:  getClientConfig(v),
		Alerts:  getAlertsConfig(v),
		Trend:   getTrendConfig(v),
		Report:  getReportConfig(v),
		HTTP:    getHTTPConfig(v),
		Logger:  getLoggerConfig(v),
		Sentry:  getSentryConfig(v),
		Viper:   v,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "pulse")

	v.SetDefault("server.slow_request_threshold_ms", 2000)
	v.SetDefault("server.slow_query_threshold_ms", 1000)
	v.SetDefault("server.memory_alert_ratio", 0.9)
	v.SetDefault("server.memory_sample_interval_ms", 30000)
	v.SetDefault("server.request_capacity", 1000)
	v.SetDefault("server.query_capacity", 500)
	v.SetDefault("server.memory_capacity", 100)

	v.SetDefault("client.slow_render_threshold_ms", 16)
	v.SetDefault("client.slow_interaction_threshold_ms", 100)
	v.SetDefault("client.large_payload_bytes", 1048576)
	v.SetDefault("client.memory_sample_interval_ms", 30000)
	v.SetDefault("client.render_capacity", 500)
	v.SetDefault("client.interaction_capacity", 500)
	v.SetDefault("client.network_capacity", 500)
	v.SetDefault("client.memory_capacity", 100)

	v.SetDefault("alerts.cooldown_ms", 300000)
	v.SetDefault("alerts.retention_ms", 86400000)
	v.SetDefault("alerts.sweep_interval_ms", 60000)
	v.SetDefault("alerts.queue_size", 256)

	v.SetDefault("trend.window_size", 10)
	v.SetDefault("trend.delta_threshold", 0.1)
	v.SetDefault("trend.absolute_threshold", 0.8)

	v.SetDefault("report.top_endpoints", 10)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout_ms", 15000)
	v.SetDefault("http.write_timeout_ms", 15000)
	v.SetDefault("http.shutdown_timeout_ms", 10000)

	v.SetDefault("logger.level", 4)
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
}
