package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/types/challenge"
)

func seed(t *testing.T, s *Store) (*challenge.Challenge, uuid.UUID) {
	t.Helper()
	ch := &challenge.Challenge{
		ID:        uuid.New(),
		Code:      "424242",
		Title:     "Test",
		Metric:    challenge.MetricDistance,
		Condition: challenge.ConditionAccumulative,
		Goal:      100,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		CreatorID: uuid.New(),
	}
	require.NoError(t, s.CreateChallenge(context.Background(), ch))
	userID := uuid.New()
	require.NoError(t, s.InsertParticipant(context.Background(), &challenge.Participant{
		UserID:      userID,
		ChallengeID: ch.ID,
	}))
	return ch, userID
}

func TestInsertParticipantDuplicate(t *testing.T) {
	s := New()
	ch, userID := seed(t, s)

	err := s.InsertParticipant(context.Background(), &challenge.Participant{
		UserID:      userID,
		ChallengeID: ch.ID,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateProgressMonotonicAndSticky(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch, userID := seed(t, s)
	now := time.Now()

	transitioned, err := s.UpdateProgress(ctx, userID, ch.ID, 60, false, now)
	require.NoError(t, err)
	assert.False(t, transitioned)

	// A lower value never wins.
	_, err = s.UpdateProgress(ctx, userID, ch.ID, 40, false, now)
	require.NoError(t, err)
	p, err := s.GetParticipant(ctx, userID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, p.Progress)

	// First completion reports the transition.
	transitioned, err = s.UpdateProgress(ctx, userID, ch.ID, 100, true, now)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Completion is sticky and never re-reported.
	transitioned, err = s.UpdateProgress(ctx, userID, ch.ID, 120, true, now)
	require.NoError(t, err)
	assert.False(t, transitioned)

	transitioned, err = s.UpdateProgress(ctx, userID, ch.ID, 0, false, now)
	require.NoError(t, err)
	assert.False(t, transitioned)

	p, err = s.GetParticipant(ctx, userID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.Progress)
	assert.True(t, p.Completed)
	require.NotNil(t, p.CompletedAt)
}

func TestUpdateProgressUnknownParticipant(t *testing.T) {
	s := New()
	ch, _ := seed(t, s)

	_, err := s.UpdateProgress(context.Background(), uuid.New(), ch.ID, 10, false, time.Now())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateChallengeCodeCollision(t *testing.T) {
	s := New()
	ch, _ := seed(t, s)

	dup := &challenge.Challenge{
		ID:        uuid.New(),
		Code:      ch.Code,
		Title:     "Clone",
		Metric:    challenge.MetricDistance,
		Condition: challenge.ConditionAccumulative,
		Goal:      50,
		StartDate: ch.StartDate,
		EndDate:   ch.EndDate,
		CreatorID: uuid.New(),
	}
	err := s.CreateChallenge(context.Background(), dup)
	assert.True(t, apperrors.IsConflict(err))
}
