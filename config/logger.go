package config

import "github.com/spf13/viper"

// Logger logger config struct
type Logger struct {
	Level      int
	Format     string
	Output     string
	OutputFile string
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:      v.GetInt("logger.level"),
		Format:     v.GetString("logger.format"),
		Output:     v.GetString("logger.output"),
		OutputFile: v.GetString("logger.output_file"),
	}
}

// Sentry sentry config struct
type Sentry struct {
	Dsn         string
	Environment string
	Release     string
}

func getSentryConfig(v *viper.Viper) *Sentry {
	return &Sentry{
		Dsn:         v.GetString("sentry.dsn"),
		Environment: v.GetString("sentry.environment"),
		Release:     v.GetString("sentry.release"),
	}
}
