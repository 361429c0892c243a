package monitor

import "github.com/pulseobs/pulse/metrics"

const (
	errorRatePenaltyMax = 50.0
	slowRatePenaltyMax  = 30.0
	slowQueryPenaltyMax = 20.0
	memoryPenaltyMax    = 20.0

	// rates at or above 10% take the full penalty for their category
	rateCap = 0.10

	// memory pressure only counts above this usage floor
	memoryFloor = 0.80
)

// Score reduces server aggregates to a single health number in [0,100].
// Pure and deterministic: identical inputs always yield the identical
// score.
func Score(a metrics.Aggregates) int {
	score := 100.0

	score -= cappedPenalty(a.ErrorRate(), errorRatePenaltyMax)
	score -= cappedPenalty(a.SlowRate(), slowRatePenaltyMax)
	score -= cappedPenalty(a.SlowQueryRate(), slowQueryPenaltyMax)
	score -= memoryPenalty(a)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

// cappedPenalty is linear in the rate up to rateCap, where it reaches
// the category maximum
func cappedPenalty(rate, max float64) float64 {
	if rate <= 0 {
		return 0
	}
	if rate >= rateCap {
		return max
	}
	return rate / rateCap * max
}

func memoryPenalty(a metrics.Aggregates) float64 {
	if !a.MemorySupported || a.MemoryUsedRatio <= memoryFloor {
		return 0
	}
	ratio := a.MemoryUsedRatio
	if ratio > 1 {
		ratio = 1
	}
	return (ratio - memoryFloor) / (1 - memoryFloor) * memoryPenaltyMax
}
