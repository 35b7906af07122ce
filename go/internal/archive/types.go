package archive

import (
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ArchivedSession is one row of session history.
type ArchivedSession struct {
	ID         uuid.UUID             `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	EndedAt    *time.Time            `json:"ended_at,omitempty"`
	Teams      pqtype.NullRawMessage `json:"teams"`
	Bonuses    pqtype.NullRawMessage `json:"bonuses"`
	ArchivedAt time.Time             `json:"archived_at"`
}

// TeamResult is the flattened per-team outcome stored alongside the raw
// snapshot so the leaderboard history is queryable without JSON digging.
type TeamResult struct {
	SessionID       uuid.UUID  `json:"session_id"`
	TeamID          int        `json:"team_id"`
	Name            string     `json:"name"`
	Score           int        `json:"score"`
	CompletedLevels int        `json:"completed_levels"`
	Errors          int        `json:"errors"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
