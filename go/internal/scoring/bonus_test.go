package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

func finishedTeam(id int, name string, completedAt time.Time, errors int, totalLevels int) models.Team {
	team := models.NewTeam(id, name)
	for i := 0; i < totalLevels; i++ {
		team.CompletedLevels = append(team.CompletedLevels, i)
	}
	team.CompletedAt = &completedAt
	team.Errors = errors
	return team
}

func TestComputeBonuses(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	const totalLevels = 9

	teams := []models.Team{
		finishedTeam(1, "Alpha", base.Add(20*time.Minute), 3, totalLevels),
		finishedTeam(2, "Bravo", base.Add(10*time.Minute), 5, totalLevels),
		finishedTeam(3, "Charlie", base.Add(30*time.Minute), 0, totalLevels),
	}
	// Delta never finished: no speed bonus, but still ranks on accuracy.
	delta := models.NewTeam(4, "Delta")
	delta.Errors = 1
	teams = append(teams, delta)

	calc := NewBonusCalculator()
	awards := calc.Compute(teams, totalLevels)

	byTeam := make(map[int]BonusAward, len(awards))
	for _, a := range awards {
		byTeam[a.TeamID] = a
	}

	// Speed: Bravo first, Alpha second, Charlie third, Delta unplaced.
	speedTests := []struct {
		teamID    int
		wantRank  int
		wantBonus int
	}{
		{teamID: 2, wantRank: 1, wantBonus: 300},
		{teamID: 1, wantRank: 2, wantBonus: 200},
		{teamID: 3, wantRank: 3, wantBonus: 100},
		{teamID: 4, wantRank: 0, wantBonus: 0},
	}
	for _, tt := range speedTests {
		a := byTeam[tt.teamID]
		if a.SpeedRank != tt.wantRank || a.SpeedBonus != tt.wantBonus {
			t.Errorf("team %d speed = rank %d bonus %d, want rank %d bonus %d",
				tt.teamID, a.SpeedRank, a.SpeedBonus, tt.wantRank, tt.wantBonus)
		}
	}

	// Accuracy: Charlie (0), Delta (1), Alpha (3), Bravo (5).
	accuracyTests := []struct {
		teamID    int
		wantRank  int
		wantBonus int
	}{
		{teamID: 3, wantRank: 1, wantBonus: 150},
		{teamID: 4, wantRank: 2, wantBonus: 100},
		{teamID: 1, wantRank: 3, wantBonus: 50},
		{teamID: 2, wantRank: 4, wantBonus: 25},
	}
	for _, tt := range accuracyTests {
		a := byTeam[tt.teamID]
		if a.AccuracyRank != tt.wantRank || a.AccuracyBonus != tt.wantBonus {
			t.Errorf("team %d accuracy = rank %d bonus %d, want rank %d bonus %d",
				tt.teamID, a.AccuracyRank, a.AccuracyBonus, tt.wantRank, tt.wantBonus)
		}
	}
}

func TestComputeIsDeterministicOnTies(t *testing.T) {
	teams := []models.Team{
		models.NewTeam(1, "Alpha"),
		models.NewTeam(2, "Bravo"),
		models.NewTeam(3, "Charlie"),
	}
	// All tied at zero errors: original team order must decide ranks, every
	// time.
	calc := NewBonusCalculator()
	first := calc.Compute(teams, 9)
	for i := 0; i < 50; i++ {
		again := calc.Compute(teams, 9)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs at %d: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
	if first[0].AccuracyRank != 1 || first[1].AccuracyRank != 2 || first[2].AccuracyRank != 3 {
		t.Errorf("tie ranks = %d,%d,%d, want 1,2,3",
			first[0].AccuracyRank, first[1].AccuracyRank, first[2].AccuracyRank)
	}
}

func TestComputeRanksBeyondScaleGetLastValue(t *testing.T) {
	teams := make([]models.Team, 6)
	for i := range teams {
		teams[i] = models.NewTeam(i+1, "Team")
		teams[i].Errors = i
	}
	awards := NewBonusCalculator().Compute(teams, 9)

	if awards[4].AccuracyBonus != 25 || awards[5].AccuracyBonus != 25 {
		t.Errorf("ranks past the scale = %d,%d, want 25,25",
			awards[4].AccuracyBonus, awards[5].AccuracyBonus)
	}
}

func TestApplyBonusesOnce(t *testing.T) {
	sess := &models.Session{
		ID: uuid.New(),
		Teams: []models.Team{
			models.NewTeam(1, "Alpha"),
			models.NewTeam(2, "Bravo"),
		},
	}
	calc := NewBonusCalculator()
	awards := calc.Compute(sess.Teams, 9)

	if !calc.Apply(sess, awards, nil) {
		t.Fatal("first Apply returned false")
	}
	if !sess.BonusApplied {
		t.Fatal("BonusApplied not set")
	}
	scores := []int{sess.Team(1).Score, sess.Team(2).Score}

	// Second application (e.g. a racing second instructor client) is a no-op.
	if calc.Apply(sess, awards, nil) {
		t.Error("second Apply returned true")
	}
	if sess.Team(1).Score != scores[0] || sess.Team(2).Score != scores[1] {
		t.Error("scores changed on second Apply")
	}
}

func TestComputeSnapshotIsolation(t *testing.T) {
	teams := []models.Team{
		models.NewTeam(1, "Alpha"),
		models.NewTeam(2, "Bravo"),
	}
	teams[0].Errors = 2

	awards := NewBonusCalculator().Compute(teams, 9)

	// Mutating the snapshot afterwards must not affect the computed awards.
	teams[0].Errors = 0
	if awards[0].AccuracyRank != 2 {
		t.Errorf("Alpha accuracy rank = %d, want 2 (from snapshot)", awards[0].AccuracyRank)
	}
	if awards[1].AccuracyRank != 1 {
		t.Errorf("Bravo accuracy rank = %d, want 1 (from snapshot)", awards[1].AccuracyRank)
	}
}
