package models

import "time"

// Team is a competing group inside a session. IDs are numeric, stable, and
// assigned at session creation (1..N). Scores may go negative; there is no
// floor.
type Team struct {
	ID              int               `json:"id"`
	Name            string            `json:"name"`
	Score           int               `json:"score"`
	CurrentLevel    int               `json:"current_level"`
	CompletedLevels []int             `json:"completed_levels"`
	Progress        map[int]int       `json:"progress"`
	Errors          int               `json:"errors"`
	HintTierUsed    int               `json:"hint_tier_used"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	PhaseStarts     map[int]time.Time `json:"phase_starts,omitempty"`
	Participants    []string          `json:"participants,omitempty"`
}

// NewTeam returns a fresh team at level zero with an empty completion record.
func NewTeam(id int, name string) Team {
	return Team{
		ID:              id,
		Name:            name,
		CompletedLevels: []int{},
		Progress:        map[int]int{0: 0},
		PhaseStarts:     map[int]time.Time{},
	}
}

// HasCompleted reports whether the team has finished the given level.
func (t *Team) HasCompleted(level int) bool {
	for _, l := range t.CompletedLevels {
		if l == level {
			return true
		}
	}
	return false
}

// CompletedInRange counts completed levels with first <= level <= last.
func (t *Team) CompletedInRange(first, last int) int {
	n := 0
	for _, l := range t.CompletedLevels {
		if l >= first && l <= last {
			n++
		}
	}
	return n
}

// Finished reports whether the team has completed all levels.
func (t *Team) Finished(totalLevels int) bool {
	return len(t.CompletedLevels) >= totalLevels
}

// Clone returns a deep copy of the team.
func (t *Team) Clone() *Team {
	c := *t
	c.CompletedLevels = append([]int(nil), t.CompletedLevels...)
	c.Participants = append([]string(nil), t.Participants...)
	c.CompletedAt = cloneTime(t.CompletedAt)
	if t.Progress != nil {
		c.Progress = make(map[int]int, len(t.Progress))
		for k, v := range t.Progress {
			c.Progress[k] = v
		}
	}
	if t.PhaseStarts != nil {
		c.PhaseStarts = make(map[int]time.Time, len(t.PhaseStarts))
		for k, v := range t.PhaseStarts {
			c.PhaseStarts[k] = v
		}
	}
	return &c
}
