// Package score rates artifacts for the character wearing them.
package score

import (
	"math"

	"showcase-tracker/internal/domain"
)

// Scorer must be deterministic: the catalogue dedups on the scored value.
type Scorer interface {
	Score(piece domain.Artifact, owner domain.CharacterRecord) (domain.Artifact, error)
}

// Weights maps an upstream prop id to how much the character values it.
type Weights map[string]float64

// DefaultWeights favour crit, the usual damage-dealer priority.
var DefaultWeights = Weights{
	"FIGHT_PROP_CRITICAL":          1,
	"FIGHT_PROP_CRITICAL_HURT":     1,
	"FIGHT_PROP_ATTACK_PERCENT":    0.75,
	"FIGHT_PROP_CHARGE_EFFICIENCY": 0.5,
	"FIGHT_PROP_ELEMENT_MASTERY":   0.5,
	"FIGHT_PROP_ATTACK":            0.25,
}

// maxRoll is the highest single 5-star substat roll per prop. A substat's
// contribution is counted in rolls.
var maxRoll = map[string]float64{
	"FIGHT_PROP_HP":                298.75,
	"FIGHT_PROP_HP_PERCENT":        5.83,
	"FIGHT_PROP_ATTACK":            19.45,
	"FIGHT_PROP_ATTACK_PERCENT":    5.83,
	"FIGHT_PROP_DEFENSE":           23.15,
	"FIGHT_PROP_DEFENSE_PERCENT":   7.29,
	"FIGHT_PROP_CRITICAL":          3.89,
	"FIGHT_PROP_CRITICAL_HURT":     7.77,
	"FIGHT_PROP_CHARGE_EFFICIENCY": 6.48,
	"FIGHT_PROP_ELEMENT_MASTERY":   23.31,
}

var grades = []struct {
	min   float64
	grade string
}{
	{7, "SSS"},
	{6, "SS"},
	{5, "S"},
	{4, "A"},
	{3, "B"},
	{0, "C"},
}

// WeightScorer counts weighted substat rolls. Weights are looked up by the
// owner's character name, then by element, then DefaultWeights.
type WeightScorer struct {
	byCharacter map[string]Weights
	byElement   map[domain.Element]Weights
}

func NewWeightScorer(byCharacter map[string]Weights, byElement map[domain.Element]Weights) *WeightScorer {
	return &WeightScorer{byCharacter: byCharacter, byElement: byElement}
}

func (s *WeightScorer) weights(owner domain.CharacterRecord) Weights {
	if w, ok := s.byCharacter[owner.AvatarName]; ok {
		return w
	}
	if w, ok := s.byElement[owner.AvatarElement]; ok {
		return w
	}
	return DefaultWeights
}

func (s *WeightScorer) Score(piece domain.Artifact, owner domain.CharacterRecord) (domain.Artifact, error) {
	w := s.weights(owner)

	var rolls float64
	for _, sub := range piece.SubStats {
		roll, ok := maxRoll[sub.PropID]
		if !ok || roll == 0 {
			continue
		}
		rolls += w[sub.PropID] * sub.Value / roll
	}
	// Two decimals keep the value stable across re-encodings.
	piece.Score = math.Round(rolls*100) / 100
	piece.Grade = gradeFor(piece.Score)
	return piece, nil
}

func gradeFor(score float64) string {
	for _, g := range grades {
		if score >= g.min {
			return g.grade
		}
	}
	return "C"
}
