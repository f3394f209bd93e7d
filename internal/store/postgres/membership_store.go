package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideLoopAPI/internal/types/group"
)

type MembershipStore struct {
	db *pgxpool.Pool
}

func NewMembershipStore(db *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) GetRole(ctx context.Context, userID, groupID uuid.UUID) (group.Role, error) {
	var role group.Role
	err := s.db.QueryRow(ctx,
		"SELECT role FROM group_members WHERE user_id = $1 AND group_id = $2",
		userID, groupID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return group.RoleNone, nil
	}
	if err != nil {
		return group.RoleNone, fmt.Errorf("failed to get group role: %w", err)
	}
	return role, nil
}
