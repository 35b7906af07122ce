package scoring

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Penalty amounts. Scores have no lower bound and may go negative.
const (
	HintTier1Penalty   = 25
	HintTier2Penalty   = 50
	WrongAnswerPenalty = 10
)

// Notifier receives human-readable notifications for score changes. Every
// score mutation emits one.
type Notifier interface {
	Notify(session *models.Session, teamID int, message string)
}

// LogNotifier writes notifications to the log. Used wherever no client
// fan-out is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(session *models.Session, teamID int, message string) {
	log.Info().
		Str("session_id", session.ID.String()).
		Int("team_id", teamID).
		Msg(message)
}

// Engine applies per-team mutation rules to a session's in-memory team
// collection. Callers are responsible for answer validation; the engine only
// mutates. Operations on unknown team ids are logged no-ops, since remote
// state may have removed or not yet synced a team.
type Engine struct {
	catalog  *content.Catalog
	notifier Notifier
	clock    clockwork.Clock
}

// NewEngine creates a scoring engine.
func NewEngine(catalog *content.Catalog, notifier Notifier, clock clockwork.Clock) *Engine {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Engine{catalog: catalog, notifier: notifier, clock: clock}
}

// AwardSuccess increments the team's score for a validated answer. It does
// not guard against re-awarding the same exercise; callers must check
// HasCompleted first.
func (e *Engine) AwardSuccess(session *models.Session, teamID int, exerciseID string, points int) bool {
	team := session.Team(teamID)
	if team == nil {
		e.logUnknownTeam(session, teamID, "award success")
		return false
	}
	team.Score += points
	e.notifier.Notify(session, teamID, fmt.Sprintf("%s solved %s for %d points", team.Name, exerciseID, points))
	return true
}

// ApplyHintPenalty charges a hint for the team's current level. Tier 1 costs
// 25 points and is usable once per level; tier 2 costs a further 50 points,
// only after tier 1, also once. Hint state resets when the team advances.
func (e *Engine) ApplyHintPenalty(session *models.Session, teamID, tier int) bool {
	team := session.Team(teamID)
	if team == nil {
		e.logUnknownTeam(session, teamID, "apply hint penalty")
		return false
	}
	switch tier {
	case 1:
		if team.HintTierUsed >= 1 {
			return false
		}
		team.Score -= HintTier1Penalty
		team.HintTierUsed = 1
		e.notifier.Notify(session, teamID, fmt.Sprintf("%s used hint 1 (-%d points)", team.Name, HintTier1Penalty))
	case 2:
		if team.HintTierUsed != 1 {
			return false
		}
		team.Score -= HintTier2Penalty
		team.HintTierUsed = 2
		e.notifier.Notify(session, teamID, fmt.Sprintf("%s used hint 2 (-%d points)", team.Name, HintTier2Penalty))
	default:
		return false
	}
	return true
}

// ApplyWrongAnswerPenalty deducts points and increments the error counter.
func (e *Engine) ApplyWrongAnswerPenalty(session *models.Session, teamID int) bool {
	team := session.Team(teamID)
	if team == nil {
		e.logUnknownTeam(session, teamID, "apply wrong answer penalty")
		return false
	}
	team.Score -= WrongAnswerPenalty
	team.Errors++
	e.notifier.Notify(session, teamID, fmt.Sprintf("%s answered wrong (-%d points)", team.Name, WrongAnswerPenalty))
	return true
}

// CompleteLevel records a finished level: appends it to the completion set,
// advances the current level, pins progress to 100, and opens the next level
// at 0. Idempotent; a repeat call for an already-completed level changes
// nothing. The completion timestamp is set the first time the final level
// lands, and a phase-start timestamp is recorded when the advance crosses a
// phase boundary.
func (e *Engine) CompleteLevel(session *models.Session, teamID, levelIndex int) bool {
	team := session.Team(teamID)
	if team == nil {
		e.logUnknownTeam(session, teamID, "complete level")
		return false
	}
	if team.HasCompleted(levelIndex) {
		return true
	}

	team.CompletedLevels = append(team.CompletedLevels, levelIndex)
	if next := levelIndex + 1; next > team.CurrentLevel {
		team.CurrentLevel = next
	}
	team.HintTierUsed = 0
	if team.Progress == nil {
		team.Progress = map[int]int{}
	}
	team.Progress[levelIndex] = 100

	total := e.catalog.TotalLevels()
	if levelIndex+1 < total {
		team.Progress[levelIndex+1] = 0
	} else if team.Finished(total) && team.CompletedAt == nil {
		now := e.clock.Now()
		team.CompletedAt = &now
	}

	e.recordPhaseStart(team, levelIndex)
	return true
}

// UpdateProgress clamps percent to [0,99] while the level is in progress.
// 100 is only reachable via CompleteLevel, so a late progress tick can never
// overwrite a just-awarded completion.
func (e *Engine) UpdateProgress(session *models.Session, teamID, levelIndex, percent int) bool {
	team := session.Team(teamID)
	if team == nil {
		e.logUnknownTeam(session, teamID, "update progress")
		return false
	}
	if team.HasCompleted(levelIndex) {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	if team.Progress == nil {
		team.Progress = map[int]int{}
	}
	team.Progress[levelIndex] = percent
	return true
}

func (e *Engine) recordPhaseStart(team *models.Team, completedLevel int) {
	from, okFrom := e.catalog.PhaseFor(completedLevel)
	to, okTo := e.catalog.PhaseFor(completedLevel + 1)
	if !okFrom || !okTo || from.Index == to.Index {
		return
	}
	if team.PhaseStarts == nil {
		team.PhaseStarts = map[int]time.Time{}
	}
	if _, exists := team.PhaseStarts[to.Index]; !exists {
		team.PhaseStarts[to.Index] = e.clock.Now()
	}
}

func (e *Engine) logUnknownTeam(session *models.Session, teamID int, op string) {
	log.Warn().
		Str("session_id", session.ID.String()).
		Int("team_id", teamID).
		Str("op", op).
		Msg("team not in local mirror, skipping")
}
