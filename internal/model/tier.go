package model

import "fmt"

// Tier is the difficulty classification of a question.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Tiers lists every tier from easiest to hardest.
var Tiers = []Tier{TierEasy, TierMedium, TierHard}

// Index returns the position of t in Tiers, or -1 for an unknown tier.
func (t Tier) Index() int {
	for i, v := range Tiers {
		if v == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t.Index() >= 0
}

// TierAt returns the tier at index i, clamped to [easy, hard].
func TierAt(i int) Tier {
	if i < 0 {
		i = 0
	}
	if i >= len(Tiers) {
		i = len(Tiers) - 1
	}
	return Tiers[i]
}

// ParseTier converts a raw string into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}
