// Package trend flags directional drift in a bounded sample series by
// comparing the mean of the most recent window against the window before
// it. Shared by the server and client memory monitors.
package trend

// Signal is the detector's verdict for a series
type Signal int

const (
	// Insufficient means the series is too short for a verdict
	Insufficient Signal = iota
	// Stable means no drift was detected
	Stable
	// Drift means the recent window rose above both thresholds
	Drift
)

func (s Signal) String() string {
	switch s {
	case Stable:
		return "stable"
	case Drift:
		return "drift"
	default:
		return "insufficient_data"
	}
}

// Verdict carries the signal plus the window means behind it
type Verdict struct {
	Signal     Signal  `json:"signal"`
	RecentMean float64 `json:"recent_mean"`
	OlderMean  float64 `json:"older_mean"`
}

// Detector compares two adjacent fixed-size windows at the end of a
// series. Both conditions are required for a drift verdict: the recent
// mean must exceed the older mean by more than DeltaThreshold, and must
// itself exceed AbsoluteThreshold. Low-but-noisy series stay stable.
type Detector struct {
	WindowSize        int
	DeltaThreshold    float64
	AbsoluteThreshold float64
}

// Evaluate inspects the series, oldest first. It needs at least
// 2*WindowSize values; shorter series yield Insufficient, which is
// neither an alert nor an error.
func (d Detector) Evaluate(values []float64) Verdict {
	size := d.WindowSize
	if size < 1 {
		size = 10
	}
	if len(values) < 2*size {
		return Verdict{Signal: Insufficient}
	}

	recent := values[len(values)-size:]
	older := values[len(values)-2*size : len(values)-size]

	v := Verdict{
		Signal:     Stable,
		RecentMean: mean(recent),
		OlderMean:  mean(older),
	}
	if v.RecentMean-v.OlderMean > d.DeltaThreshold && v.RecentMean > d.AbsoluteThreshold {
		v.Signal = Drift
	}
	return v
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
