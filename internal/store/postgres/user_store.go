package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/types/group"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT id FROM users WHERE clerk_id = $1", clerkID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperrors.NotFound("user not found for clerk_id %s", clerkID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

func (s *UserStore) GetGlobalRole(ctx context.Context, userID uuid.UUID) (group.GlobalRole, error) {
	var role group.GlobalRole
	err := s.db.QueryRow(ctx, "SELECT global_role FROM users WHERE id = $1", userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.NotFound("user %s not found", userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get global role: %w", err)
	}
	return role, nil
}

func (s *UserStore) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := s.db.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", userID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.NotFound("user %s not found", userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get username: %w", err)
	}
	return username, nil
}
