// Package store defines the persistence contracts consumed by the services.
// The postgres package implements them over pgx; the inmem package implements
// them over maps for tests.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rideLoopAPI/internal/types/activity"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/group"
)

type ChallengeStore interface {
	// CreateChallenge persists a new challenge. A duplicate shareable code
	// surfaces as a ConflictError so the caller can regenerate and retry.
	CreateChallenge(ctx context.Context, ch *challenge.Challenge) error
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	GetChallengeByCode(ctx context.Context, code string) (*challenge.Challenge, error)
	UpdateChallenge(ctx context.Context, ch *challenge.Challenge) error
	// DeleteChallenge removes the challenge and cascades participant rows.
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
	ListActiveChallenges(ctx context.Context, now time.Time) ([]*challenge.Challenge, error)
	ListGlobalChallenges(ctx context.Context) ([]*challenge.Challenge, error)
	ListGroupChallenges(ctx context.Context, groupID uuid.UUID) ([]*challenge.Challenge, error)
}

type ParticipantStore interface {
	// InsertParticipant creates the (user, challenge) row. The composite key
	// is unique at the storage layer; the loser of a concurrent join gets a
	// ConflictError and must not overwrite the winner's row.
	InsertParticipant(ctx context.Context, p *challenge.Participant) error
	GetParticipant(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Participant, error)
	// UpdateProgress applies a recompute result monotonically: the stored
	// progress only ever rises, and completed never clears once set. It
	// returns true when this call flipped completed from false to true.
	UpdateProgress(ctx context.Context, userID, challengeID uuid.UUID, prog float64, completed bool, at time.Time) (bool, error)
	DeleteParticipant(ctx context.Context, userID, challengeID uuid.UUID) error
	ListUserChallenges(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallengeResponse, error)
	ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error)
}

type ActivityStore interface {
	InsertActivity(ctx context.Context, a *activity.Activity) error
	// ListActivities returns the user's activities with start time inside
	// [from, to] inclusive.
	ListActivities(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]activity.Activity, error)
}

type MembershipStore interface {
	// GetRole returns RoleNone when the user is not in the group.
	GetRole(ctx context.Context, userID, groupID uuid.UUID) (group.Role, error)
}

type UserStore interface {
	GetUserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error)
	GetGlobalRole(ctx context.Context, userID uuid.UUID) (group.GlobalRole, error)
	GetUsername(ctx context.Context, userID uuid.UUID) (string, error)
}
