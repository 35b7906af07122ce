package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Severity orders alerts: urgent ones sort before informational ones.
type Severity string

const (
	SeverityUrgent Severity = "urgent"
	SeverityInfo   Severity = "info"
)

// Minutes left in a phase budget below which the phase-ending alert fires.
const phaseEndingThresholdMin = 5.0

// Alert is one pacing warning for a team. The ID is stable for a given
// (team, phase, progress marker), so dismissing an alert suppresses that
// exact recurrence without hiding future ones.
type Alert struct {
	ID       string   `json:"id"`
	TeamID   int      `json:"team_id"`
	TeamName string   `json:"team_name"`
	Phase    int      `json:"phase"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Engine computes pacing alerts on demand from team snapshots. Nothing is
// persisted; every call recomputes from scratch.
type Engine struct {
	catalog *content.Catalog
}

// NewEngine creates an alert engine over the given catalog.
func NewEngine(catalog *content.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Compute returns the current pacing alerts, urgent before informational,
// then alphabetically by team name.
func (e *Engine) Compute(teams []models.Team, now time.Time) []Alert {
	var out []Alert
	total := e.catalog.TotalLevels()

	for _, team := range teams {
		if team.Finished(total) {
			continue
		}
		phase, ok := e.catalog.PhaseFor(team.CurrentLevel)
		if !ok {
			continue
		}
		phaseStart, ok := team.PhaseStarts[phase.Index]
		if !ok {
			// No baseline recorded for this phase yet.
			continue
		}

		elapsedMin := now.Sub(phaseStart).Minutes()
		done := team.CompletedInRange(phase.FirstLevel, phase.LastLevel)
		perExercise := float64(phase.Minutes) / float64(phase.ExerciseCount())

		if elapsedMin > float64(done+1)*perExercise {
			out = append(out, Alert{
				ID:       fmt.Sprintf("team%d-phase%d-pace%d", team.ID, phase.Index, done),
				TeamID:   team.ID,
				TeamName: team.Name,
				Phase:    phase.Index,
				Severity: SeverityInfo,
				Message: fmt.Sprintf("%s is behind pace in %s (%d of %d exercises after %.0f min)",
					team.Name, phase.Name, done, phase.ExerciseCount(), elapsedMin),
			})
		}

		phaseComplete := done >= phase.ExerciseCount()
		if !phaseComplete && float64(phase.Minutes)-elapsedMin < phaseEndingThresholdMin {
			out = append(out, Alert{
				ID:       fmt.Sprintf("team%d-phase%d-closing", team.ID, phase.Index),
				TeamID:   team.ID,
				TeamName: team.Name,
				Phase:    phase.Index,
				Severity: SeverityUrgent,
				Message: fmt.Sprintf("%s has under %.0f minutes left in %s",
					team.Name, phaseEndingThresholdMin, phase.Name),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity == SeverityUrgent
		}
		return out[i].TeamName < out[j].TeamName
	})
	return out
}
