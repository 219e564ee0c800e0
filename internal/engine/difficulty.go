// Package engine holds the pure computations of an adaptive exam: difficulty
// adaptation, answer evaluation, scoring and proctoring aggregation. Nothing in
// this package performs I/O or keeps state between calls.
package engine

import (
	"time"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

// FirstTier is the tier of the first question of every session.
const FirstTier = model.TierMedium

// fastAnswerRatio is the share of the time limit under which a correct
// answer counts as fast.
const fastAnswerRatio = 0.5

// Outcome is what the selector needs to know about a graded answer.
type Outcome struct {
	Correct   bool
	Fraction  float64
	TimeSpent time.Duration
}

// IsFast reports whether the answer used at most half of limit.
func (o Outcome) IsFast(limit time.Duration) bool {
	return float64(o.TimeSpent) <= fastAnswerRatio*float64(limit)
}

// NextTier decides the tier of the next question from the previous tier and
// the outcome of the answer given at that tier.
//
//	correct, fast     -> promote (capped at hard)
//	correct, slow     -> hold
//	fraction == 0     -> demote (floored at easy)
//	0 < fraction < 1  -> hold
func NextTier(prev model.Tier, o Outcome, limit time.Duration) model.Tier {
	idx := prev.Index()
	if idx < 0 {
		return FirstTier
	}

	switch {
	case o.Correct && o.IsFast(limit):
		return model.TierAt(idx + 1)
	case o.Correct:
		return prev
	case o.Fraction <= 0:
		return model.TierAt(idx - 1)
	default:
		return prev
	}
}

// TimeLimits maps every tier to its answer time limit.
type TimeLimits map[model.Tier]time.Duration

// DefaultTimeLimits are used when no configuration is supplied.
var DefaultTimeLimits = TimeLimits{
	model.TierEasy:   30 * time.Second,
	model.TierMedium: 60 * time.Second,
	model.TierHard:   90 * time.Second,
}

// For returns the limit of tier t, falling back to DefaultTimeLimits.
func (l TimeLimits) For(t model.Tier) time.Duration {
	if d, ok := l[t]; ok && d > 0 {
		return d
	}
	return DefaultTimeLimits[t]
}

// FallbackTiers lists the other tiers ordered by distance from t. At equal
// distance the easier tier comes first.
func FallbackTiers(t model.Tier) []model.Tier {
	idx := t.Index()
	if idx < 0 {
		idx = FirstTier.Index()
	}
	out := make([]model.Tier, 0, len(model.Tiers)-1)
	for d := 1; d < len(model.Tiers); d++ {
		if i := idx - d; i >= 0 {
			out = append(out, model.Tiers[i])
		}
		if i := idx + d; i < len(model.Tiers) {
			out = append(out, model.Tiers[i])
		}
	}
	return out
}
