package hackathon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/alerts"
	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
	"github.com/sheetclash/sheetclash/go/internal/scoring"
	"github.com/sheetclash/sheetclash/go/internal/session"
	"github.com/sheetclash/sheetclash/go/internal/timer"
	"github.com/sheetclash/sheetclash/go/internal/validation"
)

var (
	ErrUnknownTeam     = errors.New("team not found in session")
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrNotRunning      = errors.New("session is not running")
)

// Archiver receives ended sessions for history. Optional; a nil archiver
// disables archiving.
type Archiver interface {
	InsertArchivedSession(ctx context.Context, sess *models.Session, awards []scoring.BonusAward) error
}

// SubmitResult reports the outcome of an answer submission.
type SubmitResult struct {
	Correct          bool `json:"correct"`
	AlreadyCompleted bool `json:"already_completed"`
	Points           int  `json:"points"`
	Score            int  `json:"score"`
	LevelCompleted   bool `json:"level_completed"`
}

// App glues the engines together behind the session store's single commit
// entry point. All gameplay mutations read the mirror, mutate it, and push
// the whole document; cross-client convergence is the store's concern.
type App struct {
	catalog   *content.Catalog
	validator *validation.Engine
	scorer    *scoring.Engine
	bonus     *scoring.BonusCalculator
	alerts    *alerts.Engine
	timer     *timer.Clock
	lifecycle *session.Lifecycle
	archiver  Archiver
	clock     clockwork.Clock
}

// NewApp wires the hackathon application.
func NewApp(
	catalog *content.Catalog,
	validator *validation.Engine,
	scorer *scoring.Engine,
	bonus *scoring.BonusCalculator,
	alertEngine *alerts.Engine,
	timerClock *timer.Clock,
	lifecycle *session.Lifecycle,
	archiver Archiver,
	clock clockwork.Clock,
) *App {
	return &App{
		catalog:   catalog,
		validator: validator,
		scorer:    scorer,
		bonus:     bonus,
		alerts:    alertEngine,
		timer:     timerClock,
		lifecycle: lifecycle,
		archiver:  archiver,
		clock:     clock,
	}
}

// Lifecycle exposes the lifecycle manager for observers.
func (a *App) Lifecycle() *session.Lifecycle {
	return a.lifecycle
}

// CreateSession creates a fresh session, deactivating any other active one.
func (a *App) CreateSession(ctx context.Context, teamCount int, names []string) (*models.Session, error) {
	store, err := a.lifecycle.Create(ctx, teamCount, names)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return store.Snapshot(), nil
}

// StartSession starts the countdown of the current session. Idempotent.
func (a *App) StartSession(ctx context.Context) error {
	store := a.lifecycle.Current()
	if store == nil {
		return session.ErrNoSession
	}
	return a.lifecycle.Start(ctx, uuid.MustParse(store.ID()))
}

// EndSession terminates the current session, applies the end-of-session
// bonuses exactly once, and archives the final state. The bonus ranking is
// computed from the snapshot taken at end and then applied, so score
// changes racing in after the snapshot cannot affect the ranks.
func (a *App) EndSession(ctx context.Context) error {
	store := a.lifecycle.Current()
	if store == nil {
		return session.ErrNoSession
	}
	sessionID := uuid.MustParse(store.ID())

	if err := a.lifecycle.End(ctx, sessionID); err != nil {
		return err
	}

	snapshot := store.Snapshot()
	awards := a.bonus.Compute(snapshot.Teams, a.catalog.TotalLevels())

	err := store.Commit(ctx, func(s *models.Session) error {
		if !a.bonus.Apply(s, awards, nil) {
			log.Info().Str("session_id", s.ID.String()).Msg("bonuses already applied, skipping")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply bonuses: %w", err)
	}

	if a.archiver != nil {
		final := store.Snapshot()
		if err := a.archiver.InsertArchivedSession(ctx, final, awards); err != nil {
			// Archive failures must not undo the end; history can be backfilled.
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to archive session")
		}
	}
	return nil
}

// SubmitAnswer validates a team's answer for an exercise. A correct answer
// awards the level's points and completes the level; a wrong or unparsable
// one costs the wrong-answer penalty. Re-submitting an already-completed
// level is a no-op so points cannot be double-counted.
func (a *App) SubmitAnswer(ctx context.Context, teamID int, exerciseID, input string) (SubmitResult, error) {
	level, ok := a.catalog.LevelByExercise(exerciseID)
	if !ok {
		return SubmitResult{}, ErrUnknownExercise
	}
	store, err := a.requireRunning()
	if err != nil {
		return SubmitResult{}, err
	}

	var result SubmitResult
	err = store.Commit(ctx, func(s *models.Session) error {
		team := s.Team(teamID)
		if team == nil {
			return ErrUnknownTeam
		}
		if team.HasCompleted(level.Index) {
			result.AlreadyCompleted = true
			result.Score = team.Score
			return nil
		}
		if a.validator.ValidateAnswer(exerciseID, input) {
			points := a.validator.PointsFor(exerciseID)
			a.scorer.AwardSuccess(s, teamID, exerciseID, points)
			a.scorer.CompleteLevel(s, teamID, level.Index)
			result.Correct = true
			result.Points = points
			result.LevelCompleted = true
		} else {
			a.scorer.ApplyWrongAnswerPenalty(s, teamID)
		}
		result.Score = team.Score
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

// RequestHint charges the given hint tier against the team's current level.
// Returns false when the tier is not available (already used, or tier 2
// before tier 1).
func (a *App) RequestHint(ctx context.Context, teamID, tier int) (bool, error) {
	store, err := a.requireRunning()
	if err != nil {
		return false, err
	}
	granted := false
	err = store.Commit(ctx, func(s *models.Session) error {
		if s.Team(teamID) == nil {
			return ErrUnknownTeam
		}
		granted = a.scorer.ApplyHintPenalty(s, teamID, tier)
		if !granted {
			return errNoMutation
		}
		return nil
	})
	if errors.Is(err, errNoMutation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return granted, nil
}

// UpdateProgress records a progress tick for a level, clamped below 100.
func (a *App) UpdateProgress(ctx context.Context, teamID, levelIndex, percent int) error {
	store, err := a.requireRunning()
	if err != nil {
		return err
	}
	err = store.Commit(ctx, func(s *models.Session) error {
		if s.Team(teamID) == nil {
			return ErrUnknownTeam
		}
		if !a.scorer.UpdateProgress(s, teamID, levelIndex, percent) {
			return errNoMutation
		}
		return nil
	})
	if errors.Is(err, errNoMutation) {
		return nil
	}
	return err
}

// State returns a snapshot of the current session, or ErrNoSession.
func (a *App) State() (*models.Session, error) {
	store := a.lifecycle.Current()
	if store == nil {
		return nil, session.ErrNoSession
	}
	return store.Snapshot(), nil
}

// RemainingSeconds returns the authoritative remaining session time.
func (a *App) RemainingSeconds() (int, error) {
	snapshot, err := a.State()
	if err != nil {
		return 0, err
	}
	return a.timer.RemainingSeconds(snapshot), nil
}

// Alerts recomputes the pacing alerts for the current session.
func (a *App) Alerts() ([]alerts.Alert, error) {
	snapshot, err := a.State()
	if err != nil {
		return nil, err
	}
	return a.alerts.Compute(snapshot.Teams, a.clock.Now()), nil
}

// Resume reattaches to the current session after a reload or reconnect.
func (a *App) Resume(ctx context.Context) error {
	_, err := a.lifecycle.Resume(ctx)
	return err
}

// errNoMutation aborts a commit whose mutator changed nothing, so no
// document write is pushed for rejected hint requests or stale progress
// ticks.
var errNoMutation = errors.New("no mutation")

// requireRunning returns the current store only when the session is active
// and started; everything else rejects gameplay mutations.
func (a *App) requireRunning() (*session.Store, error) {
	store := a.lifecycle.Current()
	if store == nil {
		return nil, session.ErrNoSession
	}
	snapshot := store.Snapshot()
	if !snapshot.Active || !snapshot.Started {
		return nil, ErrNotRunning
	}
	return store, nil
}
