package noteparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfinder/internal/travel"
)

func TestParseDogWalk(t *testing.T) {
	result := Parse("dog walk", travel.IntentLeisure)

	require.NotNil(t, result.Constraints.PreferOutdoors)
	assert.True(t, *result.Constraints.PreferOutdoors)
	require.NotNil(t, result.Constraints.AvoidUnderground)
	assert.True(t, *result.Constraints.AvoidUnderground)
	require.NotNil(t, result.Constraints.MinContinuousWalkMin)
	assert.Equal(t, 15.0, *result.Constraints.MinContinuousWalkMin)
	assert.Contains(t, result.Reasons, "dog_walk")
	assert.True(t, result.HasSignal)
}

func TestParseEmptyNote(t *testing.T) {
	t.Run("no intent stays neutral", func(t *testing.T) {
		result := Parse("", "")
		assert.Equal(t, travel.NeutralBiases(), result.Biases)
		assert.False(t, result.HasSignal)
		assert.Empty(t, result.Reasons)
	})

	t.Run("commute applies intent baseline on the neutral start", func(t *testing.T) {
		result := Parse("   ", travel.IntentCommute)
		assert.InDelta(t, 0.5, result.Biases.Calm, 1e-9)
		assert.InDelta(t, 0.8, result.Biases.Fast, 1e-9)
		assert.InDelta(t, 0.5, result.Biases.Comfort, 1e-9)
		assert.InDelta(t, 0.6, result.Biases.Cost, 1e-9)
	})
}

// A non-empty note that matches no rule goes through the accumulator path,
// which normalizes from zero rather than starting at 0.5. The two paths only
// agree when there are no intent adjustments either; that asymmetry is load
// bearing and must not be unified.
func TestParseUnmatchedNonEmptyNote(t *testing.T) {
	result := Parse("meet alex at the station", travel.IntentCommute)

	assert.False(t, result.HasSignal)
	assert.InDelta(t, 0.5, result.Biases.Calm, 1e-9)
	assert.InDelta(t, 0.65, result.Biases.Fast, 1e-9)
	assert.InDelta(t, 0.5, result.Biases.Comfort, 1e-9)
	assert.InDelta(t, 0.55, result.Biases.Cost, 1e-9)
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		name   string
		note   string
		reason string
		check  func(t *testing.T, r Result)
	}{
		{
			name:   "urgent note pushes fast and cuts the buffer",
			note:   "in a hurry, running late",
			reason: "urgent",
			check: func(t *testing.T, r Result) {
				assert.Greater(t, r.Biases.Fast, 0.5)
				assert.Equal(t, -5.0, r.ArrivalBufferMin)
			},
		},
		{
			name:   "fatigue caps walking",
			note:   "long day, totally exhausted",
			reason: "fatigue",
			check: func(t *testing.T, r Result) {
				require.NotNil(t, r.Constraints.MaxWalkMin)
				assert.Equal(t, 10.0, *r.Constraints.MaxWalkMin)
				assert.Greater(t, r.Biases.Comfort, 0.5)
			},
		},
		{
			name:   "budget note pushes cost",
			note:   "cheapest way please",
			reason: "budget",
			check: func(t *testing.T, r Result) {
				assert.Greater(t, r.Biases.Cost, 0.5)
			},
		},
		{
			name:   "crowd avoidance blocks the underground",
			note:   "too crowded at rush hour",
			reason: "avoid_crowds",
			check: func(t *testing.T, r Result) {
				require.NotNil(t, r.Constraints.AvoidUnderground)
				assert.True(t, *r.Constraints.AvoidUnderground)
			},
		},
		{
			name:   "accessibility is a hard requirement",
			note:   "traveling with a stroller",
			reason: "accessibility",
			check: func(t *testing.T, r Result) {
				require.NotNil(t, r.Constraints.RequireAccessible)
				assert.True(t, *r.Constraints.RequireAccessible)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.note, travel.IntentErrand)
			assert.Contains(t, result.Reasons, tt.reason)
			assert.True(t, result.HasSignal)
			tt.check(t, result)
		})
	}
}

func TestParseBiasesAlwaysInRange(t *testing.T) {
	notes := []string{
		"",
		"dog walk",
		"in a hurry and broke and exhausted and it is crowded and raining",
		"relax, scenic route, no rush, fresh air",
		"asap asap asap fastest quickest",
		"совершенно несвязанный текст",
	}
	intents := []travel.TripIntent{"", travel.IntentCommute, travel.IntentLeisure, travel.IntentErrand, travel.IntentSocial}

	for _, note := range notes {
		for _, intent := range intents {
			result := Parse(note, intent)
			for name, v := range map[string]float64{
				"calm":    result.Biases.Calm,
				"fast":    result.Biases.Fast,
				"comfort": result.Biases.Comfort,
				"cost":    result.Biases.Cost,
			} {
				assert.GreaterOrEqual(t, v, 0.0, "note %q intent %q dimension %s", note, intent, name)
				assert.LessOrEqual(t, v, 1.0, "note %q intent %q dimension %s", note, intent, name)
			}
		}
	}
}

func TestParseMultipleRulesAccumulate(t *testing.T) {
	result := Parse("tired and need the cheapest option", travel.IntentErrand)

	assert.ElementsMatch(t, []string{"fatigue", "budget"}, result.Reasons)
	require.NotNil(t, result.Constraints.MaxWalkMin)
	assert.Greater(t, result.Biases.Cost, 0.5)
	assert.Greater(t, result.Biases.Comfort, 0.5)
}
