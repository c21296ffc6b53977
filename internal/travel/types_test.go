package travel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlendStaysInRange(t *testing.T) {
	vectors := []SoftBiases{
		{Calm: 0, Fast: 0, Comfort: 0, Cost: 0},
		{Calm: 1, Fast: 1, Comfort: 1, Cost: 1},
		{Calm: 0.9, Fast: 0.1, Comfort: 0.4, Cost: 0.7},
		NeutralBiases(),
	}
	weights := []float64{0.2, 0.6, 0, 1, -0.5, 1.5}

	for _, a := range vectors {
		for _, b := range vectors {
			for _, w := range weights {
				out := Blend(a, b, w)
				for name, v := range map[string]float64{
					"calm": out.Calm, "fast": out.Fast, "comfort": out.Comfort, "cost": out.Cost,
				} {
					assert.GreaterOrEqual(t, v, 0.0, "weight %v dimension %s", w, name)
					assert.LessOrEqual(t, v, 1.0, "weight %v dimension %s", w, name)
				}
			}
		}
	}
}

func TestBlendWeighting(t *testing.T) {
	a := SoftBiases{Calm: 1, Fast: 1, Comfort: 1, Cost: 1}
	b := SoftBiases{}

	out := Blend(a, b, 0.6)
	assert.InDelta(t, 0.6, out.Calm, 1e-9)

	out = Blend(a, b, 0.2)
	assert.InDelta(t, 0.2, out.Fast, 1e-9)
}

func TestKnownIntent(t *testing.T) {
	assert.True(t, KnownIntent(IntentCommute))
	assert.True(t, KnownIntent(IntentSocial))
	assert.False(t, KnownIntent("vacation"))
	assert.False(t, KnownIntent(""))
}
