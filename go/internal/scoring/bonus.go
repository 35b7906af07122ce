package scoring

import (
	"fmt"
	"sort"

	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Default bonus scales. Rank 1 receives the first entry; ranks beyond the
// scale length all receive the last entry.
var (
	DefaultSpeedScale    = []int{300, 200, 100, 50}
	DefaultAccuracyScale = []int{150, 100, 50, 25}
)

// BonusAward is the computed end-of-session bonus for one team. Rank 0
// means the team did not place on that scale.
type BonusAward struct {
	TeamID        int `json:"team_id"`
	SpeedRank     int `json:"speed_rank,omitempty"`
	SpeedBonus    int `json:"speed_bonus"`
	AccuracyRank  int `json:"accuracy_rank"`
	AccuracyBonus int `json:"accuracy_bonus"`
}

// Total returns the combined score delta for the award.
func (a BonusAward) Total() int {
	return a.SpeedBonus + a.AccuracyBonus
}

// BonusCalculator ranks teams at session end and assigns tiered bonuses.
// Compute is a pure function over a snapshot; Apply writes the deltas once,
// guarded by the session-wide bonusApplied flag.
type BonusCalculator struct {
	speedScale    []int
	accuracyScale []int
}

// NewBonusCalculator creates a calculator with the default scales.
func NewBonusCalculator() *BonusCalculator {
	return &BonusCalculator{
		speedScale:    DefaultSpeedScale,
		accuracyScale: DefaultAccuracyScale,
	}
}

// Compute ranks the snapshot and returns one award per team, in team order.
// Speed bonuses go to teams that completed every level, ranked by ascending
// completion timestamp. Accuracy bonuses go to all teams, ranked by
// ascending error count with ties kept in original order.
func (c *BonusCalculator) Compute(teams []models.Team, totalLevels int) []BonusAward {
	awards := make(map[int]*BonusAward, len(teams))
	ordered := make([]*BonusAward, 0, len(teams))
	for _, t := range teams {
		a := &BonusAward{TeamID: t.ID}
		awards[t.ID] = a
		ordered = append(ordered, a)
	}

	finishers := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.Finished(totalLevels) && t.CompletedAt != nil {
			finishers = append(finishers, t)
		}
	}
	sort.SliceStable(finishers, func(i, j int) bool {
		return finishers[i].CompletedAt.Before(*finishers[j].CompletedAt)
	})
	for rank, t := range finishers {
		awards[t.ID].SpeedRank = rank + 1
		awards[t.ID].SpeedBonus = scaleValue(c.speedScale, rank)
	}

	byErrors := append([]models.Team(nil), teams...)
	sort.SliceStable(byErrors, func(i, j int) bool {
		return byErrors[i].Errors < byErrors[j].Errors
	})
	for rank, t := range byErrors {
		awards[t.ID].AccuracyRank = rank + 1
		awards[t.ID].AccuracyBonus = scaleValue(c.accuracyScale, rank)
	}

	result := make([]BonusAward, len(ordered))
	for i, a := range ordered {
		result[i] = *a
	}
	return result
}

// Apply adds the precomputed awards to the session exactly once. Returns
// false without touching anything when bonuses were already applied.
func (c *BonusCalculator) Apply(session *models.Session, awards []BonusAward, notifier Notifier) bool {
	if session.BonusApplied {
		return false
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	for _, award := range awards {
		team := session.Team(award.TeamID)
		if team == nil {
			continue
		}
		if delta := award.Total(); delta != 0 {
			team.Score += delta
			notifier.Notify(session, team.ID,
				fmt.Sprintf("%s earned %d bonus points (speed %d, accuracy %d)",
					team.Name, delta, award.SpeedBonus, award.AccuracyBonus))
		}
	}
	session.BonusApplied = true
	return true
}

func scaleValue(scale []int, rank int) int {
	if len(scale) == 0 {
		return 0
	}
	if rank >= len(scale) {
		return scale[len(scale)-1]
	}
	return scale[rank]
}
