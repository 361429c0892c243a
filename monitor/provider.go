package monitor

import (
	"github.com/google/wire"

	"github.com/pulseobs/pulse/config"
)

// ProviderSet is the wire provider set for the monitor package.
var ProviderSet = wire.NewSet(
	ProvideMonitor,
)

// ProvideMonitor builds a monitor with the default clock and a
// capability-free client environment.
func ProvideMonitor(cfg *config.Config) *Monitor {
	return New(cfg)
}
