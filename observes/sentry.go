package observes

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/pulseobs/pulse/alerts"
	"github.com/pulseobs/pulse/config"
)

// InitSentry registers the sentry client. A nil config or empty DSN
// disables reporting without error.
func InitSentry(appName string, c *config.Sentry) (func(), error) {
	if c == nil || c.Dsn == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              c.Dsn,
		AttachStacktrace: true,
		ServerName:       appName,
		Release:          c.Release,
		Environment:      c.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// AlertNotifier forwards emitted alerts to sentry as warning events.
// Register it on the monitor after InitSentry; without an initialized
// client the capture calls are no-ops.
func AlertNotifier() alerts.Notifier {
	return alerts.NotifierFunc(func(a alerts.Alert) {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelWarning)
			scope.SetTag("alert_type", string(a.Type))
			scope.SetExtra("alert_id", a.ID)
			for k, v := range a.Data {
				scope.SetExtra(k, v)
			}
			sentry.CaptureMessage(a.Message)
		})
	})
}
