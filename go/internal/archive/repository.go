package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/sheetclash/sheetclash/go/internal/models"
	"github.com/sheetclash/sheetclash/go/internal/scoring"
	"github.com/sheetclash/sheetclash/go/internal/sqlutil"
)

// ErrNotFound is returned when no archived session matches.
var ErrNotFound = errors.New("archived session not found")

// Repository persists ended sessions to Postgres. The full team snapshot
// goes into a JSONB column; flattened per-team rows keep leaderboard
// history queryable with plain SQL.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an archive repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS archived_sessions (
    id          UUID PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL,
    started_at  TIMESTAMPTZ,
    ended_at    TIMESTAMPTZ,
    teams       JSONB,
    bonuses     JSONB,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS archived_team_results (
    session_id       UUID NOT NULL REFERENCES archived_sessions(id) ON DELETE CASCADE,
    team_id          INT NOT NULL,
    name             TEXT NOT NULL,
    score            INT NOT NULL,
    completed_levels INT NOT NULL,
    errors           INT NOT NULL,
    completed_at     TIMESTAMPTZ,
    PRIMARY KEY (session_id, team_id)
);
`

// EnsureSchema creates the archive tables when they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// InsertArchivedSession stores an ended session and its flattened team
// results in one transaction.
func (r *Repository) InsertArchivedSession(ctx context.Context, sess *models.Session, awards []scoring.BonusAward) error {
	teamsJSON, err := json.Marshal(sess.Teams)
	if err != nil {
		return fmt.Errorf("failed to marshal team snapshot: %w", err)
	}
	bonusJSON, err := json.Marshal(awards)
	if err != nil {
		return fmt.Errorf("failed to marshal bonus awards: %w", err)
	}

	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO archived_sessions (id, created_at, started_at, ended_at, teams, bonuses)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			sess.ID,
			sess.CreatedAt,
			sqlutil.ToSqlTime(sess.StartedAt),
			sqlutil.ToSqlTime(sess.EndedAt),
			pqtype.NullRawMessage{RawMessage: teamsJSON, Valid: true},
			pqtype.NullRawMessage{RawMessage: bonusJSON, Valid: true},
		)
		if err != nil {
			return fmt.Errorf("failed to insert archived session: %w", err)
		}

		for _, team := range sess.Teams {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO archived_team_results (session_id, team_id, name, score, completed_levels, errors, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (session_id, team_id) DO NOTHING`,
				sess.ID,
				team.ID,
				team.Name,
				team.Score,
				len(team.CompletedLevels),
				team.Errors,
				sqlutil.ToSqlTime(team.CompletedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert team result for team %d: %w", team.ID, err)
			}
		}
		return nil
	})
}

// GetArchivedSession fetches one archived session by id.
func (r *Repository) GetArchivedSession(ctx context.Context, id uuid.UUID) (*ArchivedSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, started_at, ended_at, teams, bonuses, archived_at
		FROM archived_sessions
		WHERE id = $1`, id)

	var (
		out       ArchivedSession
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	err := row.Scan(&out.ID, &out.CreatedAt, &startedAt, &endedAt, &out.Teams, &out.Bonuses, &out.ArchivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get archived session: %w", err)
	}
	out.StartedAt = sqlutil.FromSqlTime(startedAt)
	out.EndedAt = sqlutil.FromSqlTime(endedAt)
	return &out, nil
}

// ListTeamResults returns the flattened results for an archived session,
// best score first.
func (r *Repository) ListTeamResults(ctx context.Context, sessionID uuid.UUID) ([]TeamResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, team_id, name, score, completed_levels, errors, completed_at
		FROM archived_team_results
		WHERE session_id = $1
		ORDER BY score DESC, team_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team results: %w", err)
	}
	defer rows.Close()

	var results []TeamResult
	for rows.Next() {
		var (
			result      TeamResult
			completedAt sql.NullTime
		)
		if err := rows.Scan(&result.SessionID, &result.TeamID, &result.Name, &result.Score,
			&result.CompletedLevels, &result.Errors, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team result: %w", err)
		}
		result.CompletedAt = sqlutil.FromSqlTime(completedAt)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team results: %w", err)
	}
	return results, nil
}

// PurgeArchivedSession physically deletes an archived session and its
// team results. Nothing else ever removes archive rows.
func (r *Repository) PurgeArchivedSession(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM archived_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge archived session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListArchivedSessions returns recent archived sessions, newest first.
func (r *Repository) ListArchivedSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, started_at, ended_at, teams, bonuses, archived_at
		FROM archived_sessions
		ORDER BY archived_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ArchivedSession
	for rows.Next() {
		var (
			out       ArchivedSession
			startedAt sql.NullTime
			endedAt   sql.NullTime
		)
		if err := rows.Scan(&out.ID, &out.CreatedAt, &startedAt, &endedAt, &out.Teams, &out.Bonuses, &out.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived session: %w", err)
		}
		out.StartedAt = sqlutil.FromSqlTime(startedAt)
		out.EndedAt = sqlutil.FromSqlTime(endedAt)
		sessions = append(sessions, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived sessions: %w", err)
	}
	return sessions, nil
}
