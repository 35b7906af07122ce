package content

import (
	"fmt"
	"os"
	"time"

	"github.com/sheetclash/sheetclash/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog is the static content supplied at startup: ordered levels, their
// phase grouping, and the expected answer per exercise. The core never
// mutates it, so a single instance is safe to share across goroutines.
type Catalog struct {
	Levels  []models.Level  `yaml:"levels"`
	Phases  []models.Phase  `yaml:"phases"`
	Answers []models.Answer `yaml:"answers"`

	answersByExercise map[string]models.Answer
	levelsByExercise  map[string]models.Level
}

// Load reads a catalog from a YAML file and validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("catalog has no levels")
	}
	c.answersByExercise = make(map[string]models.Answer, len(c.Answers))
	for _, a := range c.Answers {
		c.answersByExercise[a.ExerciseID] = a
	}
	c.levelsByExercise = make(map[string]models.Level, len(c.Levels))
	for i, l := range c.Levels {
		if l.Index != i {
			return fmt.Errorf("level %q has index %d, expected %d", l.ExerciseID, l.Index, i)
		}
		c.levelsByExercise[l.ExerciseID] = l
	}
	next := 0
	for i, p := range c.Phases {
		if p.Index != i {
			return fmt.Errorf("phase %q has index %d, expected %d", p.Name, p.Index, i)
		}
		if p.FirstLevel != next || p.LastLevel < p.FirstLevel {
			return fmt.Errorf("phase %q level range [%d,%d] is not contiguous", p.Name, p.FirstLevel, p.LastLevel)
		}
		next = p.LastLevel + 1
	}
	if next != len(c.Levels) {
		return fmt.Errorf("phases cover %d levels, catalog has %d", next, len(c.Levels))
	}
	return nil
}

// TotalLevels returns the number of levels in the catalog.
func (c *Catalog) TotalLevels() int {
	return len(c.Levels)
}

// TotalDuration is the fixed session duration: the sum of all phase budgets.
func (c *Catalog) TotalDuration() time.Duration {
	minutes := 0
	for _, p := range c.Phases {
		minutes += p.Minutes
	}
	return time.Duration(minutes) * time.Minute
}

// AnswerFor looks up the expected answer for an exercise.
func (c *Catalog) AnswerFor(exerciseID string) (models.Answer, bool) {
	a, ok := c.answersByExercise[exerciseID]
	return a, ok
}

// LevelByExercise looks up a level by its exercise id.
func (c *Catalog) LevelByExercise(exerciseID string) (models.Level, bool) {
	l, ok := c.levelsByExercise[exerciseID]
	return l, ok
}

// Level returns the level at the given index.
func (c *Catalog) Level(index int) (models.Level, bool) {
	if index < 0 || index >= len(c.Levels) {
		return models.Level{}, false
	}
	return c.Levels[index], true
}

// PhaseFor returns the phase containing the given level index.
func (c *Catalog) PhaseFor(levelIndex int) (models.Phase, bool) {
	for _, p := range c.Phases {
		if levelIndex >= p.FirstLevel && levelIndex <= p.LastLevel {
			return p, true
		}
	}
	return models.Phase{}, false
}

// Default returns the built-in nine-level, three-phase catalog used when no
// catalog file is configured.
func Default() *Catalog {
	c := &Catalog{
		Levels: []models.Level{
			{Index: 0, ExerciseID: "sum-revenue", Title: "Quarterly revenue with SUM", Points: 50, Minutes: 10, Phase: 0},
			{Index: 1, ExerciseID: "avg-unit-price", Title: "Average unit price", Points: 75, Minutes: 15, Phase: 0},
			{Index: 2, ExerciseID: "countif-regions", Title: "Region counts with COUNTIF", Points: 75, Minutes: 20, Phase: 0},
			{Index: 3, ExerciseID: "vlookup-customer", Title: "Customer lookup", Points: 100, Minutes: 15, Phase: 1},
			{Index: 4, ExerciseID: "sumifs-margin", Title: "Margin by segment with SUMIFS", Points: 100, Minutes: 20, Phase: 1},
			{Index: 5, ExerciseID: "pivot-top-product", Title: "Top product via pivot table", Points: 125, Minutes: 25, Phase: 1},
			{Index: 6, ExerciseID: "chart-trend", Title: "Trend chart type", Points: 100, Minutes: 10, Phase: 2},
			{Index: 7, ExerciseID: "conditional-kpi", Title: "KPI conditional formatting threshold", Points: 125, Minutes: 15, Phase: 2},
			{Index: 8, ExerciseID: "dashboard-total", Title: "Dashboard grand total", Points: 150, Minutes: 20, Phase: 2},
		},
		Phases: []models.Phase{
			{Index: 0, Name: "Formula Foundations", Minutes: 45, FirstLevel: 0, LastLevel: 2},
			{Index: 1, Name: "Data Analysis", Minutes: 60, FirstLevel: 3, LastLevel: 5},
			{Index: 2, Name: "Dashboard Build", Minutes: 45, FirstLevel: 6, LastLevel: 8},
		},
		Answers: []models.Answer{
			{ExerciseID: "sum-revenue", Type: models.ValidationNumeric, Numeric: 48250},
			{ExerciseID: "avg-unit-price", Type: models.ValidationNumeric, Numeric: 378.71073846},
			{ExerciseID: "countif-regions", Type: models.ValidationNumeric, Numeric: 17},
			{ExerciseID: "vlookup-customer", Type: models.ValidationText, Text: "Meridian Retail"},
			{ExerciseID: "sumifs-margin", Type: models.ValidationNumeric, Numeric: 12491.35},
			{ExerciseID: "pivot-top-product", Type: models.ValidationText, Text: "Laminator X2"},
			{ExerciseID: "chart-trend", Type: models.ValidationText, Text: "line"},
			{ExerciseID: "conditional-kpi", Type: models.ValidationNumeric, Numeric: 0.85},
			{ExerciseID: "dashboard-total", Type: models.ValidationNumeric, Numeric: 193724.6},
		},
	}
	if err := c.init(); err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}
