package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rideLoopAPI/internal/types/activity"
	"rideLoopAPI/internal/types/challenge"
)

var (
	windowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
)

func ride(daysIn int, distanceKm, durationSec, elevationM float64) activity.Activity {
	return activity.Activity{
		StartTime:      windowStart.AddDate(0, 0, daysIn),
		DistanceKm:     distanceKm,
		DurationSec:    durationSec,
		ElevationGainM: elevationM,
	}
}

func TestAggregateEmptySet(t *testing.T) {
	got := Aggregate(nil, challenge.MetricDistance, challenge.ConditionAccumulative, windowStart, windowEnd, 100)
	assert.Equal(t, 0.0, got)
}

func TestAggregateAccumulativeDistance(t *testing.T) {
	activities := []activity.Activity{
		ride(1, 20, 3600, 100),
		ride(2, 30, 5400, 250),
		ride(3, 12.5, 1800, 80),
	}

	got := Aggregate(activities, challenge.MetricDistance, challenge.ConditionAccumulative, windowStart, windowEnd, 100)
	assert.InDelta(t, 62.5, got, 1e-9)
}

func TestAggregateSingleEffortAllOrNothing(t *testing.T) {
	activities := []activity.Activity{
		ride(1, 40, 3600, 100),
		ride(2, 60, 3600, 100),
	}

	// Best single ride (60) meets the 50 km goal: credited at target value.
	got := Aggregate(activities, challenge.MetricDistance, challenge.ConditionSingle, windowStart, windowEnd, 50)
	assert.Equal(t, 50.0, got)

	// Best single ride (45) below the goal: no partial credit from the sum.
	short := []activity.Activity{
		ride(1, 40, 3600, 100),
		ride(2, 45, 3600, 100),
	}
	got = Aggregate(short, challenge.MetricDistance, challenge.ConditionSingle, windowStart, windowEnd, 50)
	assert.Equal(t, 0.0, got)
}

func TestAggregateRidesIgnoresCondition(t *testing.T) {
	activities := []activity.Activity{
		ride(1, 5, 1200, 10),
		ride(2, 8, 1500, 20),
		ride(3, 3, 900, 5),
	}

	for _, cond := range []challenge.Condition{challenge.ConditionAccumulative, challenge.ConditionSingle} {
		got := Aggregate(activities, challenge.MetricRides, cond, windowStart, windowEnd, 10)
		assert.Equal(t, 3.0, got, "condition %s", cond)
	}
}

func TestAggregateWindowBoundsInclusive(t *testing.T) {
	activities := []activity.Activity{
		{StartTime: windowStart, DistanceKm: 10},
		{StartTime: windowEnd, DistanceKm: 20},
		{StartTime: windowStart.Add(-time.Second), DistanceKm: 100},
		{StartTime: windowEnd.Add(time.Second), DistanceKm: 100},
	}

	got := Aggregate(activities, challenge.MetricDistance, challenge.ConditionAccumulative, windowStart, windowEnd, 100)
	assert.Equal(t, 30.0, got)
}

func TestAggregateTimeAndElevation(t *testing.T) {
	activities := []activity.Activity{
		ride(1, 20, 3600, 400),
		ride(2, 25, 3599, 350),
	}

	got := Aggregate(activities, challenge.MetricTime, challenge.ConditionAccumulative, windowStart, windowEnd, 7200)
	assert.Equal(t, 7199.0, got)

	got = Aggregate(activities, challenge.MetricElevation, challenge.ConditionAccumulative, windowStart, windowEnd, 1000)
	assert.Equal(t, 750.0, got)
}
