package challenge

import (
	"time"

	"github.com/google/uuid"
)

type CreateChallengeRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Metric      MetricType `json:"metric"`
	Condition   Condition  `json:"condition"`
	Goal        float64    `json:"goal"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	Visible     *bool      `json:"visible,omitempty"`
	CoverURL    *string    `json:"cover_url,omitempty"`
}

// UpdateChallengeRequest carries optional fields; nil means "leave unchanged".
type UpdateChallengeRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Goal        *float64   `json:"goal,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Visible     *bool      `json:"visible,omitempty"`
}

// UserChallengeResponse is the joined view returned for "my challenges".
type UserChallengeResponse struct {
	Challenge *Challenge `json:"challenge"`
	Progress  float64    `json:"progress"`
	Percent   float64    `json:"percent"`
	Completed bool       `json:"completed"`
	JoinedAt  time.Time  `json:"joined_at"`
}

type LeaderboardEntry struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Progress  float64   `json:"progress"`
	Percent   float64   `json:"percent"`
	Completed bool      `json:"completed"`
	Rank      int       `json:"rank"`
}
