package validation

import (
	"math"
	"strconv"
	"strings"

	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Engine checks submitted answers against the catalog. All methods are pure
// and safe to call concurrently; wrong or unparsable input is a normal false
// result, never an error.
type Engine struct {
	catalog *content.Catalog
}

// NewEngine creates an answer validation engine over the given catalog.
func NewEngine(catalog *content.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// ValidateNumeric parses the input (accepting both '.' and ',' as decimal
// separators) and compares it to the expected value after rounding both to
// one decimal place. Expected values originate from spreadsheet computations
// and carry floating-point drift, hence the tolerance.
func (e *Engine) ValidateNumeric(input string, expected float64) bool {
	normalized := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return false
	}
	return roundToTenth(value) == roundToTenth(expected)
}

// ValidateText trims both sides and compares case-insensitively.
func (e *Engine) ValidateText(input, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(input), strings.TrimSpace(expected))
}

// ValidateAnswer looks up the answer record for the exercise and dispatches
// on its declared type. Unknown exercise ids are false, never an error.
func (e *Engine) ValidateAnswer(exerciseID, input string) bool {
	answer, ok := e.catalog.AnswerFor(exerciseID)
	if !ok {
		return false
	}
	switch answer.Type {
	case models.ValidationNumeric:
		return e.ValidateNumeric(input, answer.Numeric)
	case models.ValidationText:
		return e.ValidateText(input, answer.Text)
	default:
		return false
	}
}

// PointsFor returns the point value of an exercise, 0 for unknown ids.
func (e *Engine) PointsFor(exerciseID string) int {
	level, ok := e.catalog.LevelByExercise(exerciseID)
	if !ok {
		return 0
	}
	return level.Points
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
