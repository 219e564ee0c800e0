package engine

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

func TestNextTier(t *testing.T) {
	const limit = 60 * time.Second

	tests := []struct {
		name    string
		prev    model.Tier
		outcome Outcome
		want    model.Tier
	}{
		{"correct fast promotes", model.TierMedium, Outcome{Correct: true, Fraction: 1, TimeSpent: 10 * time.Second}, model.TierHard},
		{"correct at half limit promotes", model.TierEasy, Outcome{Correct: true, Fraction: 1, TimeSpent: 30 * time.Second}, model.TierMedium},
		{"correct slow holds", model.TierMedium, Outcome{Correct: true, Fraction: 1, TimeSpent: 31 * time.Second}, model.TierMedium},
		{"promote from hard stays hard", model.TierHard, Outcome{Correct: true, Fraction: 1, TimeSpent: 0}, model.TierHard},
		{"incorrect demotes", model.TierHard, Outcome{Fraction: 0, TimeSpent: 5 * time.Second}, model.TierMedium},
		{"demote from easy stays easy", model.TierEasy, Outcome{Fraction: 0}, model.TierEasy},
		{"partial holds", model.TierMedium, Outcome{Fraction: 0.5, TimeSpent: time.Second}, model.TierMedium},
		{"partial slow holds", model.TierEasy, Outcome{Fraction: 0.4, TimeSpent: 2 * time.Minute}, model.TierEasy},
		{"unknown tier restarts at medium", model.Tier("expert"), Outcome{Correct: true, Fraction: 1}, model.TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextTier(tt.prev, tt.outcome, limit)
			if got != tt.want {
				t.Errorf("NextTier(%s) = %s, want %s", tt.prev, got, tt.want)
			}
		})
	}
}

func TestNextTierMonotonic(t *testing.T) {
	for _, prev := range model.Tiers {
		for _, spent := range []time.Duration{0, 15 * time.Second, 45 * time.Second, 5 * time.Minute} {
			up := NextTier(prev, Outcome{Correct: true, Fraction: 1, TimeSpent: spent}, time.Minute)
			if up.Index() < prev.Index() {
				t.Errorf("correct answer lowered tier %s -> %s", prev, up)
			}
			down := NextTier(prev, Outcome{Fraction: 0, TimeSpent: spent}, time.Minute)
			if down.Index() > prev.Index() {
				t.Errorf("incorrect answer raised tier %s -> %s", prev, down)
			}
			if !up.Valid() || !down.Valid() {
				t.Errorf("tier left the known range: %q %q", up, down)
			}
		}
	}
}

func TestTimeLimitsFor(t *testing.T) {
	limits := TimeLimits{model.TierEasy: 10 * time.Second}
	if got := limits.For(model.TierEasy); got != 10*time.Second {
		t.Errorf("easy limit = %v, want 10s", got)
	}
	if got := limits.For(model.TierHard); got != DefaultTimeLimits[model.TierHard] {
		t.Errorf("hard limit = %v, want default %v", got, DefaultTimeLimits[model.TierHard])
	}
}

func TestFallbackTiers(t *testing.T) {
	tests := []struct {
		tier model.Tier
		want []model.Tier
	}{
		{model.TierMedium, []model.Tier{model.TierEasy, model.TierHard}},
		{model.TierEasy, []model.Tier{model.TierMedium, model.TierHard}},
		{model.TierHard, []model.Tier{model.TierMedium, model.TierEasy}},
	}
	for _, tt := range tests {
		got := FallbackTiers(tt.tier)
		if len(got) != len(tt.want) {
			t.Fatalf("FallbackTiers(%s) = %v, want %v", tt.tier, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("FallbackTiers(%s) = %v, want %v", tt.tier, got, tt.want)
				break
			}
		}
	}
}
