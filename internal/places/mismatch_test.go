package places

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMismatchThresholdIsInclusive(t *testing.T) {
	r := newResolver(t)

	base := MismatchInput{
		SelectedCityCode: "berlin",
		InferredCityCode: "nyc",
		DestinationText:  "Central Park",
	}

	at := base
	at.Confidence = 0.8
	require.True(t, r.DetectMismatch(at).IsMismatch)

	below := base
	below.Confidence = 0.79
	assert.False(t, r.DetectMismatch(below).IsMismatch)
}

func TestDetectMismatchAgreementIsNotAMismatch(t *testing.T) {
	r := newResolver(t)

	verdict := r.DetectMismatch(MismatchInput{
		SelectedCityCode: "nyc",
		InferredCityCode: "nyc",
		Confidence:       0.95,
	})
	assert.False(t, verdict.IsMismatch)

	verdict = r.DetectMismatch(MismatchInput{
		SelectedCityCode: "nyc",
		InferredCityCode: "",
		Confidence:       0.95,
	})
	assert.False(t, verdict.IsMismatch)
}

func TestDetectMismatchSuggestionAndMessage(t *testing.T) {
	r := newResolver(t)

	verdict := r.DetectMismatch(MismatchInput{
		SelectedCityCode: "berlin",
		InferredCityCode: "nyc",
		Confidence:       0.95,
		OriginText:       "grand central",
		DestinationText:  "central park",
	})

	require.True(t, verdict.IsMismatch)
	assert.Equal(t, "nyc", verdict.SuggestedCityCode)
	assert.Equal(t, "New York", verdict.SuggestedCityName)
	assert.Contains(t, verdict.Message, "grand central")
	assert.Contains(t, verdict.Message, "central park")
	assert.Contains(t, verdict.Message, "New York")
}

func TestDetectMismatchMessageWithOnlyDestination(t *testing.T) {
	r := newResolver(t)

	verdict := r.DetectMismatch(MismatchInput{
		SelectedCityCode: "london",
		InferredCityCode: "paris",
		Confidence:       0.9,
		DestinationText:  "the louvre",
	})

	require.True(t, verdict.IsMismatch)
	assert.Contains(t, verdict.Message, "the louvre")
	assert.Contains(t, verdict.Message, "Paris")
}
