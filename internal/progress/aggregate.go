package progress

import (
	"time"

	"rideLoopAPI/internal/types/activity"
	"rideLoopAPI/internal/types/challenge"
)

// Aggregate computes a user's progress toward a goal from the given
// activities. Activities outside [windowStart, windowEnd] (inclusive) are
// skipped even if the caller already filtered at the query layer.
//
// Accumulative goals sum the metric across the window. Single-effort goals are
// all-or-nothing: the best single activity either meets the normalized target
// (progress = target) or contributes nothing. Ride-count goals ignore the
// condition and always count activities. An empty set aggregates to 0.
func Aggregate(activities []activity.Activity, metric challenge.MetricType, cond challenge.Condition, windowStart, windowEnd time.Time, target float64) float64 {
	var sum, best float64
	var count int

	for _, a := range activities {
		if !inWindow(a.StartTime, windowStart, windowEnd) {
			continue
		}
		v := metricValue(a, metric)
		sum += v
		if v > best {
			best = v
		}
		count++
	}

	if metric == challenge.MetricRides {
		return float64(count)
	}

	if cond == challenge.ConditionSingle {
		if best >= target {
			return target
		}
		return 0
	}

	return sum
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func metricValue(a activity.Activity, metric challenge.MetricType) float64 {
	switch metric {
	case challenge.MetricDistance:
		return a.DistanceKm
	case challenge.MetricTime:
		return a.DurationSec
	case challenge.MetricElevation:
		return a.ElevationGainM
	case challenge.MetricRides:
		return 1
	}
	return 0
}
