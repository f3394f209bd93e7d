package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/progress"
	"rideLoopAPI/internal/store"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/middleware"
	"rideLoopAPI/utils"
)

// maxCodeAttempts bounds the collision-retry loop for shareable codes.
const maxCodeAttempts = 8

// CompletionNotifier receives the exactly-once completion event. It is only
// called after the participant row (or its completed flip) is durably
// persisted, so a failed write never leaves a dangling notification.
type CompletionNotifier interface {
	ChallengeCompleted(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) error
}

type ChallengeService struct {
	challenges   store.ChallengeStore
	participants store.ParticipantStore
	activities   store.ActivityStore
	users        store.UserStore
	gate         *AuthorizationGate
	notifier     CompletionNotifier
}

func NewChallengeService(
	challenges store.ChallengeStore,
	participants store.ParticipantStore,
	activities store.ActivityStore,
	users store.UserStore,
	gate *AuthorizationGate,
	notifier CompletionNotifier,
) *ChallengeService {
	return &ChallengeService{
		challenges:   challenges,
		participants: participants,
		activities:   activities,
		users:        users,
		gate:         gate,
		notifier:     notifier,
	}
}

func (s *ChallengeService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	return s.users.GetUserIDByClerkID(ctx, clerkID)
}

// --- lifecycle ---

func (s *ChallengeService) CreateChallenge(ctx context.Context, clerkID string, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	actorID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	allowed, err := s.gate.CanCreate(ctx, actorID, req.GroupID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if req.GroupID == nil {
			return nil, apperrors.Authorization("only platform admins can create global challenges")
		}
		return nil, apperrors.Authorization("group membership required to create a group challenge")
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	ch := &challenge.Challenge{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Metric:      req.Metric,
		Condition:   req.Condition,
		Goal:        req.Goal,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		GroupID:     req.GroupID,
		CreatorID:   actorID,
		Visible:     visible,
		CoverURL:    req.CoverURL,
	}

	// Shareable codes are short and random, so collisions happen; regenerate
	// a bounded number of times before giving up.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := utils.GenerateChallengeCode()
		if err != nil {
			return nil, err
		}
		ch.Code = code

		err = s.challenges.CreateChallenge(ctx, ch)
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	return nil, apperrors.Conflict("could not allocate a unique challenge code after %d attempts", maxCodeAttempts)
}

func (s *ChallengeService) GetChallenge(ctx context.Context, code string) (*challenge.Challenge, error) {
	return s.challenges.GetChallengeByCode(ctx, code)
}

func (s *ChallengeService) ListActiveChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	return s.challenges.ListActiveChallenges(ctx, time.Now())
}

func (s *ChallengeService) ListGlobalChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	return s.challenges.ListGlobalChallenges(ctx)
}

func (s *ChallengeService) ListGroupChallenges(ctx context.Context, groupID uuid.UUID) ([]*challenge.Challenge, error) {
	return s.challenges.ListGroupChallenges(ctx, groupID)
}

func (s *ChallengeService) UpdateChallenge(ctx context.Context, clerkID, code string, req *challenge.UpdateChallengeRequest) (*challenge.Challenge, error) {
	actorID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	allowed, err := s.gate.CanMutate(ctx, actorID, ch, challenge.ActionEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Authorization("not allowed to edit challenge %s", code)
	}

	if req.Title != nil {
		ch.Title = *req.Title
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.Goal != nil {
		ch.Goal = *req.Goal
	}
	if req.StartDate != nil {
		ch.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		ch.EndDate = *req.EndDate
	}
	if req.Visible != nil {
		ch.Visible = *req.Visible
	}

	if ch.Goal <= 0 {
		return nil, apperrors.Validation("goal must be greater than zero")
	}
	if !ch.StartDate.Before(ch.EndDate) {
		return nil, apperrors.Validation("start date must be before end date")
	}

	if err := s.challenges.UpdateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChallengeService) UpdateCoverImage(ctx context.Context, clerkID, code, coverURL string) (*challenge.Challenge, error) {
	actorID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Cover mutation follows the edit rule; CanMutate already admits the
	// original creator.
	allowed, err := s.gate.CanMutate(ctx, actorID, ch, challenge.ActionEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Authorization("not allowed to change the cover of challenge %s", code)
	}

	ch.CoverURL = &coverURL
	if err := s.challenges.UpdateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, clerkID, code string) error {
	actorID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return err
	}

	allowed, err := s.gate.CanMutate(ctx, actorID, ch, challenge.ActionDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Authorization("not allowed to delete challenge %s", code)
	}

	return s.challenges.DeleteChallenge(ctx, ch.ID)
}

// --- participation ---

// Join creates the participant row with progress computed from the user's
// pre-existing in-window activities. A second join returns a ConflictError
// and leaves the stored row untouched. If the user already meets the goal at
// join time they are credited, and notified, immediately.
func (s *ChallengeService) Join(ctx context.Context, clerkID, code string) (*challenge.Participant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	agg, target, err := s.aggregate(ctx, userID, ch)
	if err != nil {
		return nil, err
	}

	p := &challenge.Participant{
		UserID:      userID,
		ChallengeID: ch.ID,
		Progress:    agg,
		Completed:   progress.IsComplete(agg, target),
	}
	if p.Completed {
		now := time.Now()
		p.CompletedAt = &now
	}

	if err := s.participants.InsertParticipant(ctx, p); err != nil {
		return nil, err
	}

	if p.Completed {
		s.notifyCompletion(ctx, userID, ch)
	}
	return p, nil
}

// Leave deletes the participant row; progress is discarded, not archived.
func (s *ChallengeService) Leave(ctx context.Context, clerkID, code string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return err
	}

	return s.participants.DeleteParticipant(ctx, userID, ch.ID)
}

// Recompute is the on-demand variant of RecomputeForUser.
func (s *ChallengeService) Recompute(ctx context.Context, clerkID, code string) (*challenge.Participant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.recompute(ctx, userID, ch)
}

// RecomputeForUser re-aggregates one participant. Called by the recompute
// dispatcher after activity writes and by the on-demand endpoint. Completion
// is sticky: the store merge never lowers progress or clears completed, so a
// stale recompute arriving late is harmless.
func (s *ChallengeService) RecomputeForUser(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Participant, error) {
	ch, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return s.recompute(ctx, userID, ch)
}

func (s *ChallengeService) recompute(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) (*challenge.Participant, error) {
	agg, target, err := s.aggregate(ctx, userID, ch)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.participants.UpdateProgress(ctx, userID, ch.ID, agg, progress.IsComplete(agg, target), time.Now())
	if err != nil {
		return nil, err
	}
	middleware.RecordRecompute()

	if transitioned {
		s.notifyCompletion(ctx, userID, ch)
	}

	return s.participants.GetParticipant(ctx, userID, ch.ID)
}

func (s *ChallengeService) aggregate(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) (agg, target float64, err error) {
	activities, err := s.activities.ListActivities(ctx, userID, ch.StartDate, ch.EndDate)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load activities: %w", err)
	}

	target = progress.NormalizeTarget(ch.Metric, ch.Goal)
	agg = progress.Aggregate(activities, ch.Metric, ch.Condition, ch.StartDate, ch.EndDate, target)
	return agg, target, nil
}

func (s *ChallengeService) notifyCompletion(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) {
	middleware.RecordChallengeCompletion()
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ChallengeCompleted(ctx, userID, ch); err != nil {
		// The completed flag is already durable; delivery failure is logged,
		// not retried here.
		log.Printf("Completion notification failed for user %s, challenge %s: %v", userID, ch.Code, err)
	}
}

// --- read views ---

func (s *ChallengeService) GetUserChallenges(ctx context.Context, clerkID string) ([]*challenge.UserChallengeResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	entries, err := s.participants.ListUserChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		target := progress.NormalizeTarget(entry.Challenge.Metric, entry.Challenge.Goal)
		entry.Percent = progress.PercentComplete(entry.Progress, target)
	}
	return entries, nil
}

func (s *ChallengeService) GetLeaderboard(ctx context.Context, code string) ([]*challenge.LeaderboardEntry, error) {
	ch, err := s.challenges.GetChallengeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	participants, err := s.participants.ListParticipants(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	target := progress.NormalizeTarget(ch.Metric, ch.Goal)
	entries := make([]*challenge.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		username, err := s.users.GetUsername(ctx, p.UserID)
		if err != nil {
			log.Printf("Failed to resolve username for %s: %v", p.UserID, err)
		}
		entries = append(entries, &challenge.LeaderboardEntry{
			UserID:    p.UserID,
			Username:  username,
			Progress:  p.Progress,
			Percent:   progress.PercentComplete(p.Progress, target),
			Completed: p.Completed,
			Rank:      i + 1,
		})
	}
	return entries, nil
}

func validateCreateRequest(req *challenge.CreateChallengeRequest) error {
	if req.Title == "" {
		return apperrors.Validation("title is required")
	}
	if !req.Metric.Valid() {
		return apperrors.Validation("invalid metric %q", req.Metric)
	}
	if !req.Condition.Valid() {
		return apperrors.Validation("invalid condition %q", req.Condition)
	}
	if req.Goal <= 0 {
		return apperrors.Validation("goal must be greater than zero")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return apperrors.Validation("start and end dates are required")
	}
	if !req.StartDate.Before(req.EndDate) {
		return apperrors.Validation("start date must be before end date")
	}
	return nil
}
