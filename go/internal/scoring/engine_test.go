package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

func newTestSession(teamCount int) *models.Session {
	sess := &models.Session{
		ID:     uuid.New(),
		Active: true,
		Teams:  make([]models.Team, teamCount),
	}
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	for i := 0; i < teamCount; i++ {
		sess.Teams[i] = models.NewTeam(i+1, names[i%len(names)])
	}
	return sess
}

func newTestEngine(t *testing.T) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return NewEngine(content.Default(), LogNotifier{}, clock), clock
}

func TestAwardSuccess(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)

	if !e.AwardSuccess(sess, 1, "avg-unit-price", 75) {
		t.Fatal("AwardSuccess returned false for known team")
	}
	if got := sess.Team(1).Score; got != 75 {
		t.Errorf("score = %d, want 75", got)
	}

	if e.AwardSuccess(sess, 99, "avg-unit-price", 75) {
		t.Error("AwardSuccess returned true for unknown team")
	}
}

func TestApplyHintPenalty(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(e *Engine, s *models.Session)
		tier      int
		want      bool
		wantScore int
		wantUsed  int
	}{
		{
			name:      "tier 1 fresh level",
			tier:      1,
			want:      true,
			wantScore: -25,
			wantUsed:  1,
		},
		{
			name: "tier 1 twice rejected",
			setup: func(e *Engine, s *models.Session) {
				e.ApplyHintPenalty(s, 1, 1)
			},
			tier:      1,
			want:      false,
			wantScore: -25,
			wantUsed:  1,
		},
		{
			name:      "tier 2 before tier 1 rejected",
			tier:      2,
			want:      false,
			wantScore: 0,
			wantUsed:  0,
		},
		{
			name: "tier 2 after tier 1",
			setup: func(e *Engine, s *models.Session) {
				e.ApplyHintPenalty(s, 1, 1)
			},
			tier:      2,
			want:      true,
			wantScore: -75,
			wantUsed:  2,
		},
		{
			name: "tier 2 twice rejected",
			setup: func(e *Engine, s *models.Session) {
				e.ApplyHintPenalty(s, 1, 1)
				e.ApplyHintPenalty(s, 1, 2)
			},
			tier:      2,
			want:      false,
			wantScore: -75,
			wantUsed:  2,
		},
		{
			name:      "invalid tier rejected",
			tier:      3,
			want:      false,
			wantScore: 0,
			wantUsed:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			sess := newTestSession(2)
			if tt.setup != nil {
				tt.setup(e, sess)
			}

			if got := e.ApplyHintPenalty(sess, 1, tt.tier); got != tt.want {
				t.Errorf("ApplyHintPenalty tier %d = %v, want %v", tt.tier, got, tt.want)
			}
			team := sess.Team(1)
			if team.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", team.Score, tt.wantScore)
			}
			if team.HintTierUsed != tt.wantUsed {
				t.Errorf("hint tier used = %d, want %d", team.HintTierUsed, tt.wantUsed)
			}
		})
	}
}

func TestHintStateResetsOnLevelAdvance(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)

	e.ApplyHintPenalty(sess, 1, 1)
	e.ApplyHintPenalty(sess, 1, 2)
	e.CompleteLevel(sess, 1, 0)

	if got := sess.Team(1).HintTierUsed; got != 0 {
		t.Fatalf("hint tier after level advance = %d, want 0", got)
	}
	if !e.ApplyHintPenalty(sess, 1, 1) {
		t.Error("tier 1 unavailable on the next level")
	}
}

func TestApplyWrongAnswerPenalty(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)

	e.ApplyWrongAnswerPenalty(sess, 1)
	team := sess.Team(1)
	if team.Score != -10 {
		t.Errorf("score = %d, want -10 (no floor at zero)", team.Score)
	}
	if team.Errors != 1 {
		t.Errorf("errors = %d, want 1", team.Errors)
	}
}

func TestCompleteLevel(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)
	team := sess.Team(1)

	if !e.CompleteLevel(sess, 1, 0) {
		t.Fatal("CompleteLevel returned false")
	}
	if team.CurrentLevel != 1 {
		t.Errorf("current level = %d, want 1", team.CurrentLevel)
	}
	if team.Progress[0] != 100 {
		t.Errorf("progress[0] = %d, want 100", team.Progress[0])
	}
	if team.Progress[1] != 0 {
		t.Errorf("progress[1] = %d, want 0", team.Progress[1])
	}

	// Repeating the completion changes nothing.
	before := len(team.CompletedLevels)
	e.CompleteLevel(sess, 1, 0)
	if len(team.CompletedLevels) != before {
		t.Errorf("completed levels grew on repeat: %d -> %d", before, len(team.CompletedLevels))
	}
}

func TestCompleteLevelCurrentLevelMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)
	team := sess.Team(1)

	e.CompleteLevel(sess, 1, 0)
	e.CompleteLevel(sess, 1, 1)
	e.CompleteLevel(sess, 1, 2)
	if team.CurrentLevel != 3 {
		t.Fatalf("current level = %d, want 3", team.CurrentLevel)
	}

	// A stale completion for an earlier level must not move the team back.
	e.CompleteLevel(sess, 1, 1)
	if team.CurrentLevel != 3 {
		t.Errorf("current level moved backwards to %d", team.CurrentLevel)
	}
}

func TestCompleteLevelRecordsPhaseStart(t *testing.T) {
	e, clock := newTestEngine(t)
	sess := newTestSession(2)
	team := sess.Team(1)

	e.CompleteLevel(sess, 1, 0)
	e.CompleteLevel(sess, 1, 1)
	if _, ok := team.PhaseStarts[1]; ok {
		t.Fatal("phase 1 start recorded before crossing the boundary")
	}

	clock.Advance(5 * time.Minute)
	e.CompleteLevel(sess, 1, 2)
	start, ok := team.PhaseStarts[1]
	if !ok {
		t.Fatal("phase 1 start not recorded after completing the last level of phase 0")
	}
	if !start.Equal(clock.Now()) {
		t.Errorf("phase 1 start = %v, want %v", start, clock.Now())
	}
}

func TestCompleteFinalLevelSetsCompletedAt(t *testing.T) {
	e, clock := newTestEngine(t)
	sess := newTestSession(2)
	team := sess.Team(1)

	total := content.Default().TotalLevels()
	for i := 0; i < total; i++ {
		e.CompleteLevel(sess, 1, i)
	}

	if team.CompletedAt == nil {
		t.Fatal("CompletedAt not set after finishing every level")
	}
	if !team.CompletedAt.Equal(clock.Now()) {
		t.Errorf("CompletedAt = %v, want %v", team.CompletedAt, clock.Now())
	}

	// Finishing again must not move the timestamp.
	stamp := *team.CompletedAt
	clock.Advance(time.Minute)
	e.CompleteLevel(sess, 1, total-1)
	if !team.CompletedAt.Equal(stamp) {
		t.Error("CompletedAt changed on repeated completion")
	}
}

func TestUpdateProgress(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(2)
	team := sess.Team(1)

	tests := []struct {
		name    string
		percent int
		want    int
	}{
		{name: "normal tick", percent: 40, want: 40},
		{name: "clamped below zero", percent: -5, want: 0},
		{name: "clamped below hundred", percent: 150, want: 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !e.UpdateProgress(sess, 1, 0, tt.percent) {
				t.Fatal("UpdateProgress returned false")
			}
			if got := team.Progress[0]; got != tt.want {
				t.Errorf("progress = %d, want %d", got, tt.want)
			}
		})
	}

	// A late tick cannot overwrite a completion.
	e.CompleteLevel(sess, 1, 0)
	if e.UpdateProgress(sess, 1, 0, 50) {
		t.Error("UpdateProgress accepted a tick for a completed level")
	}
	if got := team.Progress[0]; got != 100 {
		t.Errorf("progress after completion = %d, want 100", got)
	}
}

// Mirrors a full scoring round: a correct answer, both hints on the next
// level, then a wrong answer.
func TestScoringRound(t *testing.T) {
	e, _ := newTestEngine(t)
	sess := newTestSession(4)

	e.AwardSuccess(sess, 2, "sum-revenue", 75)
	e.CompleteLevel(sess, 2, 0)
	e.ApplyHintPenalty(sess, 2, 1)
	e.ApplyHintPenalty(sess, 2, 2)
	e.ApplyWrongAnswerPenalty(sess, 2)

	if got := sess.Team(2).Score; got != -10 {
		t.Errorf("final score = %d, want -10", got)
	}
	for _, id := range []int{1, 3, 4} {
		if got := sess.Team(id).Score; got != 0 {
			t.Errorf("team %d score = %d, want 0", id, got)
		}
	}
}
