// Package postgres implements the store contracts over a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/types/challenge"
)

const uniqueViolation = "23505"

type ChallengeStore struct {
	db *pgxpool.Pool
}

func NewChallengeStore(db *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{db: db}
}

const challengeColumns = `id, code, title, description, metric, condition, goal,
	start_date, end_date, group_id, creator_id, visible, cover_url, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	err := row.Scan(
		&ch.ID, &ch.Code, &ch.Title, &ch.Description, &ch.Metric, &ch.Condition,
		&ch.Goal, &ch.StartDate, &ch.EndDate, &ch.GroupID, &ch.CreatorID,
		&ch.Visible, &ch.CoverURL, &ch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChallengeStore) CreateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	query := `
		INSERT INTO challenges (
			id, code, title, description, metric, condition, goal,
			start_date, end_date, group_id, creator_id, visible, cover_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err := s.db.QueryRow(
		ctx, query,
		ch.ID, ch.Code, ch.Title, ch.Description, ch.Metric, ch.Condition,
		ch.Goal, ch.StartDate, ch.EndDate, ch.GroupID, ch.CreatorID,
		ch.Visible, ch.CoverURL,
	).Scan(&ch.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Conflict("challenge code %s already exists", ch.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE id = $1`, challengeColumns)

	ch, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("challenge %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return ch, nil
}

func (s *ChallengeStore) GetChallengeByCode(ctx context.Context, code string) (*challenge.Challenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE code = $1`, challengeColumns)

	ch, err := scanChallenge(s.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("challenge %s not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return ch, nil
}

func (s *ChallengeStore) UpdateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	query := `
		UPDATE challenges
		SET title = $2, description = $3, goal = $4, start_date = $5,
			end_date = $6, visible = $7, cover_url = $8
		WHERE id = $1
	`

	result, err := s.db.Exec(
		ctx, query,
		ch.ID, ch.Title, ch.Description, ch.Goal, ch.StartDate, ch.EndDate,
		ch.Visible, ch.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("challenge %s not found", ch.ID)
	}
	return nil
}

func (s *ChallengeStore) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	// challenge_participants has ON DELETE CASCADE on challenge_id.
	result, err := s.db.Exec(ctx, "DELETE FROM challenges WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("challenge %s not found", id)
	}
	return nil
}

func (s *ChallengeStore) ListActiveChallenges(ctx context.Context, now time.Time) ([]*challenge.Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM challenges
		WHERE visible = TRUE AND start_date <= $1 AND end_date >= $1
		ORDER BY end_date ASC
	`, challengeColumns)

	return s.listChallenges(ctx, query, now)
}

func (s *ChallengeStore) ListGlobalChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM challenges
		WHERE group_id IS NULL AND visible = TRUE
		ORDER BY start_date DESC
	`, challengeColumns)

	return s.listChallenges(ctx, query)
}

func (s *ChallengeStore) ListGroupChallenges(ctx context.Context, groupID uuid.UUID) ([]*challenge.Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM challenges
		WHERE group_id = $1
		ORDER BY start_date DESC
	`, challengeColumns)

	return s.listChallenges(ctx, query, groupID)
}

func (s *ChallengeStore) listChallenges(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	return challenges, rows.Err()
}
