package config

import (
	"time"

	"github.com/spf13/viper"
)

// HTTP holds the listener options for the serving process.
type HTTP struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func getHTTPConfig(v *viper.Viper) *HTTP {
	return &HTTP{
		Addr:            v.GetString("http.addr"),
		ReadTimeout:     time.Duration(v.GetInt64("http.read_timeout_ms")) * time.Millisecond,
		WriteTimeout:    time.Duration(v.GetInt64("http.write_timeout_ms")) * time.Millisecond,
		ShutdownTimeout: time.Duration(v.GetInt64("http.shutdown_timeout_ms")) * time.Millisecond,
	}
}
