package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/store/inmem"
	"rideLoopAPI/internal/types/activity"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/group"
)

var (
	testStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) ChallengeCompleted(_ context.Context, userID uuid.UUID, ch *challenge.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, userID.String()+"/"+ch.Code)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newChallengeTestEnv(t *testing.T) (*inmem.Store, *ChallengeService, *fakeNotifier) {
	t.Helper()
	db := inmem.New()
	notifier := &fakeNotifier{}
	gate := NewAuthorizationGate(db, db)
	svc := NewChallengeService(db, db, db, db, gate, notifier)
	return db, svc, notifier
}

var codeSeq int

func seedChallenge(t *testing.T, db *inmem.Store, metric challenge.MetricType, cond challenge.Condition, goal float64) *challenge.Challenge {
	t.Helper()
	codeSeq++
	ch := &challenge.Challenge{
		ID:        uuid.New(),
		Code:      fmt.Sprintf("%06d", 100000+codeSeq),
		Title:     "June riding",
		Metric:    metric,
		Condition: cond,
		Goal:      goal,
		StartDate: testStart,
		EndDate:   testEnd,
		CreatorID: uuid.New(),
		Visible:   true,
	}
	require.NoError(t, db.CreateChallenge(context.Background(), ch))
	return ch
}

func addRide(db *inmem.Store, userID uuid.UUID, daysIn int, distanceKm, durationSec, elevationM float64) {
	db.AddActivity(activity.Activity{
		UserID:         userID,
		StartTime:      testStart.AddDate(0, 0, daysIn),
		DistanceKm:     distanceKm,
		DurationSec:    durationSec,
		ElevationGainM: elevationM,
	})
}

func TestJoinWithNoActivities(t *testing.T) {
	db, svc, notifier := newChallengeTestEnv(t)
	db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	assert.Equal(t, 0.0, p.Progress)
	assert.False(t, p.Completed)
	assert.Equal(t, 0, notifier.count())
}

func TestJoinComputesInitialProgress(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)

	addRide(db, userID, 1, 20, 3600, 200)
	addRide(db, userID, 3, 30, 5400, 350)
	// Outside the window: must not count.
	db.AddActivity(activity.Activity{UserID: userID, StartTime: testStart.AddDate(0, 0, -2), DistanceKm: 99})

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, p.Progress, 1e-9)
	assert.False(t, p.Completed)
}

func TestJoinTwiceConflictKeepsProgress(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)

	addRide(db, userID, 1, 50, 3600, 200)

	_, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	// More riding before the duplicate join; the conflict must not fold it in.
	addRide(db, userID, 2, 20, 3600, 100)

	_, err = svc.Join(context.Background(), "clerk_rider", ch.Code)
	assert.True(t, apperrors.IsConflict(err))

	p, err := db.GetParticipant(context.Background(), userID, ch.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, p.Progress, 1e-9)
}

func TestJoinAlreadyCompleteNotifiesImmediately(t *testing.T) {
	db, svc, notifier := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 50)

	addRide(db, userID, 1, 60, 3600, 200)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	assert.True(t, p.Completed)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, 1, notifier.count())
}

func TestSingleEffortAllOrNothing(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionSingle, 50)

	addRide(db, userID, 1, 40, 3600, 100)
	addRide(db, userID, 2, 60, 3600, 100)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.Progress)
	assert.True(t, p.Completed)

	// A second user whose best ride falls short gets nothing, not a sum.
	otherID := db.AddUser("clerk_other", "other", group.GlobalUser)
	addRide(db, otherID, 1, 40, 3600, 100)
	addRide(db, otherID, 2, 45, 3600, 100)

	p, err = svc.Join(context.Background(), "clerk_other", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Progress)
	assert.False(t, p.Completed)
}

func TestTimeGoalBoundary(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricTime, challenge.ConditionAccumulative, 2)

	addRide(db, userID, 1, 30, 3600, 100)
	addRide(db, userID, 2, 29, 3599, 100)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 7199.0, p.Progress)
	assert.False(t, p.Completed)

	addRide(db, userID, 3, 0.1, 1, 0)

	p, err = svc.Recompute(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 7200.0, p.Progress)
	assert.True(t, p.Completed)
}

func TestCompletionNotifiedExactlyOnce(t *testing.T) {
	db, svc, notifier := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 50)

	_, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, notifier.count())

	addRide(db, userID, 1, 60, 3600, 200)

	// Two consecutive recomputes both land at or above the goal; only the
	// false->true transition may emit.
	_, err = svc.Recompute(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	_, err = svc.Recompute(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	assert.Equal(t, 1, notifier.count())
}

func TestRecomputeNeverLowersProgress(t *testing.T) {
	db, svc, notifier := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 50)

	_, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	// Simulate an earlier recompute that already observed a higher aggregate
	// and completed the participant.
	transitioned, err := db.UpdateProgress(context.Background(), userID, ch.ID, 80, true, time.Now())
	require.NoError(t, err)
	require.True(t, transitioned)

	// A stale recompute that sees no activities must not lower anything.
	p, err := svc.Recompute(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	assert.Equal(t, 80.0, p.Progress)
	assert.True(t, p.Completed)
	assert.Equal(t, 0, notifier.count())
}

func TestLeaveDiscardsStateAndRejoinRecomputes(t *testing.T) {
	db, svc, notifier := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 50)

	addRide(db, userID, 1, 60, 3600, 200)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	require.True(t, p.Completed)
	require.Equal(t, 1, notifier.count())

	require.NoError(t, svc.Leave(context.Background(), "clerk_rider", ch.Code))

	_, err = db.GetParticipant(context.Background(), userID, ch.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// Rejoin computes a fresh value with no memory of the old row; the rider
	// still meets the goal, so they are credited (and notified) again.
	p, err = svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, 2, notifier.count())
}

func TestLeaveWhenNotJoined(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 50)

	err := svc.Leave(context.Background(), "clerk_rider", ch.Code)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRidesChallengeCountsActivities(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricRides, challenge.ConditionSingle, 3)

	addRide(db, userID, 1, 5, 1200, 10)
	addRide(db, userID, 2, 8, 1500, 20)
	addRide(db, userID, 3, 3, 900, 5)

	p, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.Progress)
	assert.True(t, p.Completed)
}

func TestCreateChallengeAuthorization(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	groupID := uuid.New()
	db.AddUser("clerk_admin", "admin", group.GlobalAdmin)
	memberID := db.AddUser("clerk_member", "member", group.GlobalUser)
	db.AddUser("clerk_outsider", "outsider", group.GlobalUser)
	db.SetRole(memberID, groupID, group.RoleMember)

	req := func(groupID *uuid.UUID) *challenge.CreateChallengeRequest {
		return &challenge.CreateChallengeRequest{
			Title:     "Climb month",
			Metric:    challenge.MetricElevation,
			Condition: challenge.ConditionAccumulative,
			Goal:      5000,
			StartDate: testStart,
			EndDate:   testEnd,
			GroupID:   groupID,
		}
	}

	// Global creation requires the platform admin role, membership is moot.
	_, err := svc.CreateChallenge(context.Background(), "clerk_member", req(nil))
	assert.True(t, apperrors.IsAuthorization(err))

	ch, err := svc.CreateChallenge(context.Background(), "clerk_admin", req(nil))
	require.NoError(t, err)
	assert.Len(t, ch.Code, 6)
	assert.Nil(t, ch.GroupID)

	// Group creation requires membership, any role.
	ch, err = svc.CreateChallenge(context.Background(), "clerk_member", req(&groupID))
	require.NoError(t, err)
	assert.Equal(t, memberID, ch.CreatorID)

	_, err = svc.CreateChallenge(context.Background(), "clerk_outsider", req(&groupID))
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestCreateChallengeValidation(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	db.AddUser("clerk_admin", "admin", group.GlobalAdmin)

	base := challenge.CreateChallengeRequest{
		Title:     "Bad",
		Metric:    challenge.MetricDistance,
		Condition: challenge.ConditionAccumulative,
		Goal:      100,
		StartDate: testStart,
		EndDate:   testEnd,
	}

	noGoal := base
	noGoal.Goal = 0
	_, err := svc.CreateChallenge(context.Background(), "clerk_admin", &noGoal)
	assert.True(t, apperrors.IsValidation(err))

	reversed := base
	reversed.StartDate, reversed.EndDate = testEnd, testStart
	_, err = svc.CreateChallenge(context.Background(), "clerk_admin", &reversed)
	assert.True(t, apperrors.IsValidation(err))

	badMetric := base
	badMetric.Metric = "watts"
	_, err = svc.CreateChallenge(context.Background(), "clerk_admin", &badMetric)
	assert.True(t, apperrors.IsValidation(err))

	noTitle := base
	noTitle.Title = ""
	_, err = svc.CreateChallenge(context.Background(), "clerk_admin", &noTitle)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateChallengeAuthorization(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	groupID := uuid.New()
	creatorID := db.AddUser("clerk_creator", "creator", group.GlobalUser)
	memberID := db.AddUser("clerk_member", "member", group.GlobalUser)
	db.SetRole(creatorID, groupID, group.RoleMember)
	db.SetRole(memberID, groupID, group.RoleMember)

	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)
	ch.GroupID = &groupID
	ch.CreatorID = creatorID
	require.NoError(t, db.UpdateChallenge(context.Background(), ch))

	newTitle := "Renamed"
	req := &challenge.UpdateChallengeRequest{Title: &newTitle}

	// A plain member who is neither creator nor group admin is refused.
	_, err := svc.UpdateChallenge(context.Background(), "clerk_member", ch.Code, req)
	assert.True(t, apperrors.IsAuthorization(err))

	// The creator may edit their own challenge.
	updated, err := svc.UpdateChallenge(context.Background(), "clerk_creator", ch.Code, req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestDeleteChallengeCascadesParticipants(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	db.AddUser("clerk_admin", "admin", group.GlobalAdmin)
	riderID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)

	_, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChallenge(context.Background(), "clerk_admin", ch.Code))

	_, err = db.GetParticipant(context.Background(), riderID, ch.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetChallenge(context.Background(), ch.Code)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetUserChallengesPercent(t *testing.T) {
	db, svc, _ := newChallengeTestEnv(t)
	userID := db.AddUser("clerk_rider", "rider", group.GlobalUser)
	ch := seedChallenge(t, db, challenge.MetricDistance, challenge.ConditionAccumulative, 100)

	addRide(db, userID, 1, 25, 3600, 100)

	_, err := svc.Join(context.Background(), "clerk_rider", ch.Code)
	require.NoError(t, err)

	entries, err := svc.GetUserChallenges(context.Background(), "clerk_rider")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ch.ID, entries[0].Challenge.ID)
	assert.InDelta(t, 25.0, entries[0].Percent, 1e-9)
}
