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

type ParticipantStore struct {
	db *pgxpool.Pool
}

func NewParticipantStore(db *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) InsertParticipant(ctx context.Context, p *challenge.Participant) error {
	query := `
		INSERT INTO challenge_participants (user_id, challenge_id, progress, completed, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING joined_at
	`

	err := s.db.QueryRow(
		ctx, query,
		p.UserID, p.ChallengeID, p.Progress, p.Completed, p.CompletedAt,
	).Scan(&p.JoinedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Conflict("user %s already joined challenge %s", p.UserID, p.ChallengeID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (s *ParticipantStore) GetParticipant(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Participant, error) {
	query := `
		SELECT user_id, challenge_id, progress, completed, completed_at, joined_at
		FROM challenge_participants
		WHERE user_id = $1 AND challenge_id = $2
	`

	p := &challenge.Participant{}
	err := s.db.QueryRow(ctx, query, userID, challengeID).Scan(
		&p.UserID, &p.ChallengeID, &p.Progress, &p.Completed, &p.CompletedAt, &p.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// UpdateProgress takes a row lock so near-simultaneous recomputes serialize.
// Progress is merged monotonically and completed stays sticky, which keeps
// out-of-order recomputes from ever lowering a recorded result.
func (s *ParticipantStore) UpdateProgress(ctx context.Context, userID, challengeID uuid.UUID, prog float64, completed bool, at time.Time) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin recompute tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prevProgress float64
	var prevCompleted bool
	err = tx.QueryRow(ctx, `
		SELECT progress, completed FROM challenge_participants
		WHERE user_id = $1 AND challenge_id = $2
		FOR UPDATE
	`, userID, challengeID).Scan(&prevProgress, &prevCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock participant: %w", err)
	}

	newProgress := prog
	if prevProgress > newProgress {
		newProgress = prevProgress
	}
	newCompleted := prevCompleted || completed

	if newCompleted && !prevCompleted {
		_, err = tx.Exec(ctx, `
			UPDATE challenge_participants
			SET progress = $3, completed = TRUE, completed_at = $4
			WHERE user_id = $1 AND challenge_id = $2
		`, userID, challengeID, newProgress, at)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE challenge_participants
			SET progress = $3
			WHERE user_id = $1 AND challenge_id = $2
		`, userID, challengeID, newProgress)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit recompute: %w", err)
	}
	return newCompleted && !prevCompleted, nil
}

func (s *ParticipantStore) DeleteParticipant(ctx context.Context, userID, challengeID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		"DELETE FROM challenge_participants WHERE user_id = $1 AND challenge_id = $2",
		userID, challengeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	return nil
}

func (s *ParticipantStore) ListUserChallenges(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallengeResponse, error) {
	query := fmt.Sprintf(`
		SELECT %s, cp.progress, cp.completed, cp.joined_at
		FROM challenge_participants cp
		JOIN challenges c ON c.id = cp.challenge_id
		WHERE cp.user_id = $1
		ORDER BY cp.joined_at DESC
	`, prefixedChallengeColumns)

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user challenges: %w", err)
	}
	defer rows.Close()

	var out []*challenge.UserChallengeResponse
	for rows.Next() {
		ch := &challenge.Challenge{}
		entry := &challenge.UserChallengeResponse{Challenge: ch}
		err := rows.Scan(
			&ch.ID, &ch.Code, &ch.Title, &ch.Description, &ch.Metric, &ch.Condition,
			&ch.Goal, &ch.StartDate, &ch.EndDate, &ch.GroupID, &ch.CreatorID,
			&ch.Visible, &ch.CoverURL, &ch.CreatedAt,
			&entry.Progress, &entry.Completed, &entry.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user challenge: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *ParticipantStore) ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error) {
	query := `
		SELECT user_id, challenge_id, progress, completed, completed_at, joined_at
		FROM challenge_participants
		WHERE challenge_id = $1
		ORDER BY progress DESC, joined_at ASC
	`

	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*challenge.Participant
	for rows.Next() {
		p := &challenge.Participant{}
		err := rows.Scan(&p.UserID, &p.ChallengeID, &p.Progress, &p.Completed, &p.CompletedAt, &p.JoinedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

const prefixedChallengeColumns = `c.id, c.code, c.title, c.description, c.metric, c.condition,
	c.goal, c.start_date, c.end_date, c.group_id, c.creator_id, c.visible, c.cover_url, c.created_at`
