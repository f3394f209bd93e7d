package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/store"
	"rideLoopAPI/internal/types/activity"
)

// RecomputeEnqueuer is what the activity service needs from the dispatcher.
type RecomputeEnqueuer interface {
	Enqueue(job RecomputeJob)
}

type ActivityService struct {
	activities   store.ActivityStore
	participants store.ParticipantStore
	users        store.UserStore
	dispatcher   RecomputeEnqueuer
}

func NewActivityService(
	activities store.ActivityStore,
	participants store.ParticipantStore,
	users store.UserStore,
	dispatcher RecomputeEnqueuer,
) *ActivityService {
	return &ActivityService{
		activities:   activities,
		participants: participants,
		users:        users,
		dispatcher:   dispatcher,
	}
}

// AddActivity records a ride and enqueues a recompute for every joined
// challenge whose window contains the ride's start time. Challenges the ride
// falls outside of are untouched.
func (s *ActivityService) AddActivity(ctx context.Context, clerkID string, req *activity.CreateActivityRequest) (*activity.Activity, error) {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if err := validateActivityRequest(req); err != nil {
		return nil, err
	}

	a := &activity.Activity{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          req.Title,
		StartTime:      req.StartTime,
		DistanceKm:     req.DistanceKm,
		DurationSec:    req.DurationSec,
		ElevationGainM: req.ElevationGainM,
	}

	if err := s.activities.InsertActivity(ctx, a); err != nil {
		return nil, err
	}

	s.fanOutRecomputes(ctx, userID, a.StartTime)
	return a, nil
}

// ListActivities returns the user's rides inside [from, to].
func (s *ActivityService) ListActivities(ctx context.Context, clerkID string, from, to time.Time) ([]activity.Activity, error) {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.activities.ListActivities(ctx, userID, from, to)
}

func (s *ActivityService) fanOutRecomputes(ctx context.Context, userID uuid.UUID, startTime time.Time) {
	if s.dispatcher == nil {
		return
	}

	entries, err := s.participants.ListUserChallenges(ctx, userID)
	if err != nil {
		log.Printf("Failed to list challenges for recompute fan-out, user %s: %v", userID, err)
		return
	}

	for _, entry := range entries {
		ch := entry.Challenge
		if startTime.Before(ch.StartDate) || startTime.After(ch.EndDate) {
			continue
		}
		s.dispatcher.Enqueue(RecomputeJob{UserID: userID, ChallengeID: ch.ID})
	}
}

func validateActivityRequest(req *activity.CreateActivityRequest) error {
	if req.StartTime.IsZero() {
		return apperrors.Validation("start_time is required")
	}
	if req.DistanceKm < 0 || req.DurationSec < 0 || req.ElevationGainM < 0 {
		return apperrors.Validation("distance, duration and elevation must not be negative")
	}
	return nil
}
