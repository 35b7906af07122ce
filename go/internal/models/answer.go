package models

// ValidationType declares how a submitted answer is checked.
type ValidationType string

const (
	ValidationNumeric ValidationType = "numeric"
	ValidationText    ValidationType = "text"
)

// Answer is the expected result for one exercise. Looked up, never written.
type Answer struct {
	ExerciseID string         `json:"exercise_id" yaml:"exercise_id"`
	Type       ValidationType `json:"type" yaml:"type"`
	Numeric    float64        `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Text       string         `json:"text,omitempty" yaml:"text,omitempty"`
}
