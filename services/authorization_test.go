package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideLoopAPI/internal/store/inmem"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/group"
)

func TestCanMutateGlobalChallenge(t *testing.T) {
	ctx := context.Background()
	db := inmem.New()
	gate := NewAuthorizationGate(db, db)

	admin := db.AddUser("clerk_admin", "admin", group.GlobalAdmin)
	creator := db.AddUser("clerk_creator", "creator", group.GlobalUser)

	globalCh := &challenge.Challenge{ID: uuid.New(), CreatorID: creator}

	tests := []struct {
		name  string
		actor uuid.UUID
		want  bool
	}{
		{"platform admin allowed", admin, true},
		{"creator denied on global", creator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.CanMutate(ctx, tt.actor, globalCh, challenge.ActionEdit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanMutateGroupChallenge(t *testing.T) {
	ctx := context.Background()
	db := inmem.New()
	gate := NewAuthorizationGate(db, db)

	groupID := uuid.New()
	admin := db.AddUser("clerk_admin", "admin", group.GlobalAdmin)
	creator := db.AddUser("clerk_creator", "creator", group.GlobalUser)
	groupOwner := db.AddUser("clerk_owner", "owner", group.GlobalUser)
	groupAdmin := db.AddUser("clerk_gadmin", "gadmin", group.GlobalUser)
	member := db.AddUser("clerk_member", "member", group.GlobalUser)
	outsider := db.AddUser("clerk_outsider", "outsider", group.GlobalUser)

	db.SetRole(creator, groupID, group.RoleMember)
	db.SetRole(groupOwner, groupID, group.RoleOwner)
	db.SetRole(groupAdmin, groupID, group.RoleAdmin)
	db.SetRole(member, groupID, group.RoleMember)

	ch := &challenge.Challenge{ID: uuid.New(), GroupID: &groupID, CreatorID: creator}

	tests := []struct {
		name  string
		actor uuid.UUID
		want  bool
	}{
		{"creator allowed", creator, true},
		{"group owner allowed", groupOwner, true},
		{"group admin allowed", groupAdmin, true},
		{"platform admin allowed", admin, true},
		{"plain member denied", member, false},
		{"outsider denied", outsider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []challenge.Action{challenge.ActionEdit, challenge.ActionDelete} {
				got, err := gate.CanMutate(ctx, tt.actor, ch, action)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got, "action %s", action)
			}
		})
	}
}

func TestCanCreate(t *testing.T) {
	ctx := context.Background()
	db := inmem.New()
	gate := NewAuthorizationGate(db, db)

	groupID := uuid.New()
	admin := db.AddUser("clerk_admin", "admin", group.GlobalAdmin)
	member := db.AddUser("clerk_member", "member", group.GlobalUser)
	outsider := db.AddUser("clerk_outsider", "outsider", group.GlobalUser)

	db.SetRole(member, groupID, group.RoleMember)

	// Global challenges: platform admins only, group membership is irrelevant.
	got, err := gate.CanCreate(ctx, admin, nil)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = gate.CanCreate(ctx, member, nil)
	require.NoError(t, err)
	assert.False(t, got)

	// Group challenges: any current member may create.
	got, err = gate.CanCreate(ctx, member, &groupID)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = gate.CanCreate(ctx, outsider, &groupID)
	require.NoError(t, err)
	assert.False(t, got)
}
