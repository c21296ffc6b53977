package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultProfileToScoringBiasesNearNeutral(t *testing.T) {
	biases := ToScoringBiases(DefaultProfile("u1"))

	assert.InDelta(t, 0.5, biases.Calm, 0.1)
	assert.InDelta(t, 0.5, biases.Fast, 0.1)
	assert.InDelta(t, 0.5, biases.Comfort, 0.1)
	assert.InDelta(t, 0.5, biases.Cost, 0.1)
}

func TestToScoringBiasesDirection(t *testing.T) {
	p := DefaultProfile("u1")
	p.CalmQuickBias = 1
	p.CostComfortBias = -1

	biases := ToScoringBiases(p)
	assert.Greater(t, biases.Fast, biases.Calm)
	assert.Greater(t, biases.Cost, biases.Comfort)

	for _, v := range []float64{biases.Calm, biases.Fast, biases.Comfort, biases.Cost} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSignificantDivergence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   bool
	}{
		{"fresh profile", func(*Profile) {}, false},
		{"bias just under threshold", func(p *Profile) { p.CalmQuickBias = 0.15 }, false},
		{"bias over threshold", func(p *Profile) { p.CalmQuickBias = 0.16 }, true},
		{"negative bias over threshold", func(p *Profile) { p.CostComfortBias = -0.2 }, true},
		{"outdoor bias over threshold", func(p *Profile) { p.OutdoorBias = 0.3 }, true},
		{"walking tolerance drifted", func(p *Profile) { p.WalkingToleranceMax = 26 }, true},
		{"walking tolerance within threshold", func(p *Profile) { p.WalkingToleranceMax = 24 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile("u1")
			tt.mutate(&p)
			assert.Equal(t, tt.want, SignificantDivergence(p))
		})
	}
}
