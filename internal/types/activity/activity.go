package activity

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a single recorded ride. The challenge engine treats these as an
// append-only source: only StartTime, DistanceKm, DurationSec and ElevationGainM
// matter for progress.
type Activity struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	StartTime      time.Time `json:"start_time" db:"start_time"`
	DistanceKm     float64   `json:"distance_km" db:"distance_km"`
	DurationSec    float64   `json:"duration_sec" db:"duration_sec"`
	ElevationGainM float64   `json:"elevation_gain_m" db:"elevation_gain_m"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type CreateActivityRequest struct {
	Title          string    `json:"title"`
	StartTime      time.Time `json:"start_time"`
	DistanceKm     float64   `json:"distance_km"`
	DurationSec    float64   `json:"duration_sec"`
	ElevationGainM float64   `json:"elevation_gain_m"`
}
