package challenge

import (
	"time"

	"github.com/google/uuid"
)

type MetricType string

const (
	MetricDistance  MetricType = "distance"
	MetricTime      MetricType = "time"
	MetricElevation MetricType = "elevation"
	MetricRides     MetricType = "rides"
)

func (m MetricType) Valid() bool {
	switch m {
	case MetricDistance, MetricTime, MetricElevation, MetricRides:
		return true
	}
	return false
}

type Condition string

const (
	ConditionAccumulative Condition = "accumulative"
	ConditionSingle       Condition = "single"
)

func (c Condition) Valid() bool {
	return c == ConditionAccumulative || c == ConditionSingle
}

type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Challenge is a time-windowed goal users can join. GroupID == nil means the
// challenge is platform-wide.
type Challenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Metric      MetricType `json:"metric" db:"metric"`
	Condition   Condition  `json:"condition" db:"condition"`
	Goal        float64    `json:"goal" db:"goal"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     time.Time  `json:"end_date" db:"end_date"`
	GroupID     *uuid.UUID `json:"group_id,omitempty" db:"group_id"`
	CreatorID   uuid.UUID  `json:"creator_id" db:"creator_id"`
	Visible     bool       `json:"visible" db:"visible"`
	CoverURL    *string    `json:"cover_url,omitempty" db:"cover_url"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

func (c *Challenge) IsGlobal() bool {
	return c.GroupID == nil
}

// Participant tracks one user's state inside one challenge. Progress is stored
// in normalized goal units (seconds for time goals, km / meters / count
// otherwise) and never decreases; Completed never flips back to false.
type Participant struct {
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	Progress    float64    `json:"progress" db:"progress"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
}
