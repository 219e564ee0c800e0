package engine

import (
	"time"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

// minTimeMultiplier is the floor applied to slow and over-limit answers.
const minTimeMultiplier = 0.5

// MaxTimeSpent caps client-reported answer times. Any value past it is far
// over every tier limit and scores like any other over-limit answer.
const MaxTimeSpent = 24 * time.Hour

// SpentFromSeconds converts client-reported seconds into a duration capped at
// MaxTimeSpent. Negative and NaN inputs yield 0.
func SpentFromSeconds(seconds float64) time.Duration {
	if !(seconds > 0) {
		return 0
	}
	if seconds >= MaxTimeSpent.Seconds() {
		return MaxTimeSpent
	}
	return time.Duration(seconds * float64(time.Second))
}

var tierWeights = map[model.Tier]float64{
	model.TierEasy:   1,
	model.TierMedium: 2,
	model.TierHard:   3,
}

// Weight returns the base point value of a tier.
func Weight(t model.Tier) float64 {
	return tierWeights[t]
}

// TimeMultiplier returns max(0.5, 1 - timeSpent/limit) clamped to [0.5, 1].
// A non-positive limit disables the time factor.
func TimeMultiplier(timeSpent, limit time.Duration) float64 {
	if limit <= 0 {
		return 1
	}
	if timeSpent < 0 {
		timeSpent = 0
	}
	m := 1 - float64(timeSpent)/float64(limit)
	if m < minTimeMultiplier {
		return minTimeMultiplier
	}
	if m > 1 {
		return 1
	}
	return m
}

// Points is the scored value of one answer.
type Points struct {
	Awarded        float64 `json:"points"`
	Max            float64 `json:"max_points"`
	TimeMultiplier float64 `json:"time_multiplier"`
}

// Score converts a graded answer into points:
// weight(tier) * timeMultiplier * fraction, out of weight(tier).
func Score(t model.Tier, fraction float64, timeSpent, limit time.Duration) Points {
	fraction = clamp(fraction, 0, 1)
	w := Weight(t)
	m := TimeMultiplier(timeSpent, limit)
	return Points{
		Awarded:        w * m * fraction,
		Max:            w,
		TimeMultiplier: m,
	}
}

// Percentage returns 100 * score / maxScore, or 0 when nothing was scored.
func Percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return 100 * score / maxScore
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
