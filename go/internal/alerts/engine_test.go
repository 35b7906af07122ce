package alerts

import (
	"testing"
	"time"

	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Default catalog phase 0: "Formula Foundations", 45 minutes over levels
// 0..2, so the pace budget is 15 minutes per exercise.

func pacedTeam(id int, name string, phaseStart time.Time) models.Team {
	team := models.NewTeam(id, name)
	team.PhaseStarts = map[int]time.Time{0: phaseStart}
	return team
}

func TestComputeOvertimeAlert(t *testing.T) {
	e := NewEngine(content.Default())
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		elapsed    time.Duration
		wantAlerts int
	}{
		{name: "within first exercise budget", elapsed: 14 * time.Minute, wantAlerts: 0},
		{name: "past first exercise budget", elapsed: 16 * time.Minute, wantAlerts: 1},
		{name: "exactly on budget", elapsed: 15 * time.Minute, wantAlerts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teams := []models.Team{pacedTeam(1, "Alpha", start)}
			got := e.Compute(teams, start.Add(tt.elapsed))
			if len(got) != tt.wantAlerts {
				t.Fatalf("alerts = %d, want %d: %+v", len(got), tt.wantAlerts, got)
			}
			if tt.wantAlerts == 1 {
				if got[0].Severity != SeverityInfo {
					t.Errorf("severity = %s, want info", got[0].Severity)
				}
				if got[0].ID != "team1-phase0-pace0" {
					t.Errorf("id = %s, want team1-phase0-pace0", got[0].ID)
				}
			}
		})
	}
}

func TestOvertimeBudgetScalesWithCompletions(t *testing.T) {
	e := NewEngine(content.Default())
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	team := pacedTeam(1, "Alpha", start)
	team.CompletedLevels = []int{0}
	team.CurrentLevel = 1
	teams := []models.Team{team}

	// One exercise done: budget is 2 * 15 = 30 minutes.
	if got := e.Compute(teams, start.Add(29*time.Minute)); len(got) != 0 {
		t.Errorf("alert fired inside budget: %+v", got)
	}
	got := e.Compute(teams, start.Add(31*time.Minute))
	if len(got) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got))
	}
	if got[0].ID != "team1-phase0-pace1" {
		t.Errorf("id = %s, want team1-phase0-pace1", got[0].ID)
	}
}

func TestComputePhaseEndingAlert(t *testing.T) {
	e := NewEngine(content.Default())
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	team := pacedTeam(1, "Alpha", start)
	team.CompletedLevels = []int{0, 1}
	team.CurrentLevel = 2
	teams := []models.Team{team}

	// 41 minutes in: under 5 minutes left of the 45-minute phase, and the
	// pace budget (3 * 15) is not yet blown.
	got := e.Compute(teams, start.Add(41*time.Minute))
	if len(got) != 1 {
		t.Fatalf("alerts = %d, want 1: %+v", len(got), got)
	}
	if got[0].Severity != SeverityUrgent {
		t.Errorf("severity = %s, want urgent", got[0].Severity)
	}
	if got[0].ID != "team1-phase0-closing" {
		t.Errorf("id = %s, want team1-phase0-closing", got[0].ID)
	}
}

func TestComputeSkipsTeamsWithoutBaseline(t *testing.T) {
	e := NewEngine(content.Default())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	team := models.NewTeam(1, "Alpha")
	team.PhaseStarts = nil
	if got := e.Compute([]models.Team{team}, now); len(got) != 0 {
		t.Errorf("alerts for team without phase baseline: %+v", got)
	}
}

func TestComputeSkipsFinishedTeams(t *testing.T) {
	e := NewEngine(content.Default())
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	team := pacedTeam(1, "Alpha", start)
	for i := 0; i < content.Default().TotalLevels(); i++ {
		team.CompletedLevels = append(team.CompletedLevels, i)
	}
	if got := e.Compute([]models.Team{team}, start.Add(3*time.Hour)); len(got) != 0 {
		t.Errorf("alerts for finished team: %+v", got)
	}
}

func TestComputeOrdering(t *testing.T) {
	e := NewEngine(content.Default())
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	// Zulu is merely behind pace (info); Alpha is in the closing window
	// (urgent). Urgent sorts first despite the name ordering.
	zulu := pacedTeam(1, "Zulu", start.Add(-20*time.Minute))
	alpha := pacedTeam(2, "Alpha", start.Add(-42*time.Minute))
	alpha.CompletedLevels = []int{0, 1}
	alpha.CurrentLevel = 2

	got := e.Compute([]models.Team{zulu, alpha}, start)
	if len(got) < 2 {
		t.Fatalf("alerts = %d, want at least 2: %+v", len(got), got)
	}
	if got[0].Severity != SeverityUrgent || got[0].TeamName != "Alpha" {
		t.Errorf("first alert = %s/%s, want urgent/Alpha", got[0].Severity, got[0].TeamName)
	}
	if got[1].Severity != SeverityInfo || got[1].TeamName != "Zulu" {
		t.Errorf("second alert = %s/%s, want info/Zulu", got[1].Severity, got[1].TeamName)
	}
}
