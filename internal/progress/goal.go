// Package progress holds the pure math of the challenge engine: goal
// normalization, window-scoped activity aggregation and completion checks.
package progress

import (
	"math"

	"rideLoopAPI/internal/types/challenge"
)

const secondsPerHour = 3600

// NormalizeTarget converts an author-entered goal into the units the
// aggregator produces. Time goals are entered in hours and compared against
// accumulated seconds; everything else is taken as-is (km, meters, rides).
func NormalizeTarget(metric challenge.MetricType, goal float64) float64 {
	if metric == challenge.MetricTime {
		return goal * secondsPerHour
	}
	return goal
}

// IsComplete reports whether an aggregate meets the normalized target.
// The comparison is inclusive: hitting the target exactly counts.
func IsComplete(aggregate, target float64) bool {
	return aggregate >= target
}

// PercentComplete returns the display percentage, capped at 100. Goals are
// validated to be > 0 at creation time, so target is never zero here.
func PercentComplete(aggregate, target float64) float64 {
	return math.Min(100, aggregate/target*100)
}
