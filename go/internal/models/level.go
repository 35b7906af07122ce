package models

// Level is one exercise in the catalog: a fixed point value, a time
// allocation in minutes, and the phase it belongs to. Static content, never
// mutated at runtime.
type Level struct {
	Index      int    `json:"index" yaml:"index"`
	ExerciseID string `json:"exercise_id" yaml:"exercise_id"`
	Title      string `json:"title" yaml:"title"`
	Points     int    `json:"points" yaml:"points"`
	Minutes    int    `json:"minutes" yaml:"minutes"`
	Phase      int    `json:"phase" yaml:"phase"`
}

// Phase is a contiguous group of levels sharing a pacing budget. Phases are
// consumed only by the alert engine.
type Phase struct {
	Index      int    `json:"index" yaml:"index"`
	Name       string `json:"name" yaml:"name"`
	Minutes    int    `json:"minutes" yaml:"minutes"`
	FirstLevel int    `json:"first_level" yaml:"first_level"`
	LastLevel  int    `json:"last_level" yaml:"last_level"`
}

// ExerciseCount returns the number of levels grouped into the phase.
func (p Phase) ExerciseCount() int {
	return p.LastLevel - p.FirstLevel + 1
}
