package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideLoopAPI/internal/types/activity"
)

type ActivityStore struct {
	db *pgxpool.Pool
}

func NewActivityStore(db *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) InsertActivity(ctx context.Context, a *activity.Activity) error {
	query := `
		INSERT INTO activities (id, user_id, title, start_time, distance_km, duration_sec, elevation_gain_m)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := s.db.QueryRow(
		ctx, query,
		a.ID, a.UserID, a.Title, a.StartTime, a.DistanceKm, a.DurationSec, a.ElevationGainM,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) ListActivities(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]activity.Activity, error) {
	query := `
		SELECT id, user_id, title, start_time, distance_km, duration_sec, elevation_gain_m, created_at
		FROM activities
		WHERE user_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC
	`

	rows, err := s.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []activity.Activity
	for rows.Next() {
		var a activity.Activity
		err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.StartTime, &a.DistanceKm, &a.DurationSec, &a.ElevationGainM, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
