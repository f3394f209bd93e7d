package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rideLoopAPI/internal/store"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/group"
)

// AuthorizationGate is the single decision point for challenge lifecycle
// permissions. Handlers and services never check roles ad hoc; they ask the
// gate with (actor, challenge, action).
type AuthorizationGate struct {
	members store.MembershipStore
	users   store.UserStore
}

func NewAuthorizationGate(members store.MembershipStore, users store.UserStore) *AuthorizationGate {
	return &AuthorizationGate{
		members: members,
		users:   users,
	}
}

// CanMutate decides EDIT/DELETE on an existing challenge.
//
// Global challenges: platform admins only. Group challenges: the creator, a
// group admin/owner, or a platform admin. Plain group membership is not
// enough.
func (g *AuthorizationGate) CanMutate(ctx context.Context, actorID uuid.UUID, ch *challenge.Challenge, _ challenge.Action) (bool, error) {
	globalRole, err := g.users.GetGlobalRole(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve actor role: %w", err)
	}
	if globalRole == group.GlobalAdmin {
		return true, nil
	}

	if ch.IsGlobal() {
		return false, nil
	}

	if actorID == ch.CreatorID {
		return true, nil
	}

	role, err := g.members.GetRole(ctx, actorID, *ch.GroupID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve group role: %w", err)
	}
	return role.IsAdmin(), nil
}

// CanCreate decides creation. A nil groupID means a platform-wide challenge,
// which only platform admins may create; a group challenge requires current
// membership in that group, any role.
func (g *AuthorizationGate) CanCreate(ctx context.Context, actorID uuid.UUID, groupID *uuid.UUID) (bool, error) {
	globalRole, err := g.users.GetGlobalRole(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve actor role: %w", err)
	}
	if globalRole == group.GlobalAdmin {
		return true, nil
	}

	if groupID == nil {
		return false, nil
	}

	role, err := g.members.GetRole(ctx, actorID, *groupID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve group role: %w", err)
	}
	return role.IsMember(), nil
}
