package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfinder/internal/llm"
	"wayfinder/internal/places"
	"wayfinder/internal/prefs"
	"wayfinder/internal/providers"
	"wayfinder/internal/skill"
	"wayfinder/internal/travel"
)

// noon is early afternoon in every supported city's timezone.
var noon = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	orch       *Orchestrator
	client     *llm.MockClient
	candidates *providers.FixtureCandidates
	weather    *providers.StaticWeather
	profiles   prefs.ProfileStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	resolver, err := places.NewResolver(nil)
	require.NoError(t, err)
	candidates, err := providers.NewFixtureCandidates()
	require.NoError(t, err)

	client := llm.NewMockClient()
	weather := providers.NewStaticWeather(nil)
	profiles := prefs.NewMemoryStore()

	orch, err := New(Deps{
		Resolver:   resolver,
		Weather:    weather,
		Candidates: candidates,
		Profiles:   profiles,
		LLM:        client,
		Runner:     skill.NewRunner(skill.WithMetrics(skill.MustNewMetrics(prometheus.NewRegistry()))),
		Now:        func() time.Time { return noon },
		Rand:       func() float64 { return 0.99 }, // memory callbacks stay quiet
	})
	require.NoError(t, err)

	return &fixture{orch: orch, client: client, candidates: candidates, weather: weather, profiles: profiles}
}

func berlinRequest() Request {
	return Request{
		UserID:       "u-test",
		Origin:       "Kreuzberg",
		Destination:  "Mitte",
		SelectedCity: "berlin",
		Intent:       travel.IntentCommute,
	}
}

func invocationNames(result Result) []string {
	if result.Debug == nil {
		return nil
	}
	names := make([]string, 0, len(result.Debug.Invocations))
	for _, inv := range result.Debug.Invocations {
		names = append(names, inv.Skill)
	}
	return names
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestRecommendCityMismatchShortCircuits(t *testing.T) {
	f := newFixture(t)

	req := Request{
		UserID:       "u-test",
		Origin:       "my flat",
		Destination:  "Central Park",
		SelectedCity: "berlin",
		Intent:       travel.IntentLeisure,
		Debug:        true,
	}
	result := f.orch.Recommend(context.Background(), req)

	require.NoError(t, result.Validate())
	require.Equal(t, KindCityMismatch, result.Kind)
	require.NotNil(t, result.CityMismatch)
	assert.Equal(t, "berlin", result.CityMismatch.SelectedCity)
	assert.Equal(t, "nyc", result.CityMismatch.SuggestedCity)
	assert.Equal(t, "New York", result.CityMismatch.SuggestedName)
	assert.GreaterOrEqual(t, result.CityMismatch.Confidence, 0.9)
	assert.Contains(t, result.CityMismatch.Message, "Central Park")

	// The gate fires before weather, scoring, and generation.
	names := invocationNames(result)
	assert.Equal(t, []string{"resolve_places", "detect_mismatch"}, names)
	assert.Zero(t, f.client.GenerateCalls)
}

func TestRecommendNoRoutesOnEmptyCandidates(t *testing.T) {
	f := newFixture(t)
	f.candidates.SetCity("berlin", nil)

	result := f.orch.Recommend(context.Background(), berlinRequest())

	require.NoError(t, result.Validate())
	require.Equal(t, KindNoRoutes, result.Kind)
	require.NotNil(t, result.NoRoutes)
	assert.Contains(t, result.NoRoutes.Reason, "Kreuzberg")
	assert.Contains(t, result.NoRoutes.Reason, "Mitte")
}

func TestRecommendHappyPath(t *testing.T) {
	f := newFixture(t)
	f.client.JSONResponse = `{"selectedIndex": 2, "reasoning": "The bike ride is the quickest door to door today.", "confidence": 0.82, "keyFactors": ["fastest option", "no transfers"]}`

	req := berlinRequest()
	req.Debug = true
	result := f.orch.Recommend(context.Background(), req)

	require.NoError(t, result.Validate())
	require.Equal(t, KindPlan, result.Kind)
	plan := result.Plan
	require.NotNil(t, plan)

	assert.Equal(t, "berlin-bike", plan.CandidateID)
	assert.Equal(t, travel.ModeBicycling, plan.Mode)
	assert.Equal(t, 19.0, plan.DurationMin)
	assert.Len(t, plan.Steps, 3)
	assert.Contains(t, plan.Steps[len(plan.Steps)-1], "Mitte")
	assert.True(t, plan.UsedLLM)
	assert.Equal(t, 0.82, plan.Confidence)
	assert.Equal(t, "The bike ride is the quickest door to door today.", plan.Reasoning)
	assert.NotEmpty(t, plan.Archetype)
	require.NotNil(t, plan.Candidate)
	assert.Equal(t, "berlin-bike", plan.Candidate.ID)

	assert.NotEmpty(t, plan.DepthLayer.Presence)
	assert.NotEmpty(t, plan.DepthLayer.Framing)
	assert.NotEmpty(t, plan.DepthLayer.Responsibility)

	require.NotNil(t, result.Debug)
	names := invocationNames(result)
	assert.Equal(t, []string{
		"resolve_places", "detect_mismatch", "fetch_weather", "fetch_candidates",
		"load_profile", "parse_note", "score_candidates", "select_route",
	}, names)
	assert.Equal(t, "berlin", result.Debug.InferredCity)
	assert.False(t, result.Debug.IsNight)
	assert.NotNil(t, result.Debug.Weather)
	assert.Len(t, result.Debug.Scores, 4)
	require.NotNil(t, result.Debug.LLMCall)
	assert.Equal(t, "mock", result.Debug.LLMCall.Provider)
	for _, v := range []float64{
		result.Debug.MergedBiases.Calm, result.Debug.MergedBiases.Fast,
		result.Debug.MergedBiases.Comfort, result.Debug.MergedBiases.Cost,
	} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestRecommendWithoutDebugOmitsPayload(t *testing.T) {
	f := newFixture(t)
	f.client.Available = false

	result := f.orch.Recommend(context.Background(), berlinRequest())

	require.Equal(t, KindPlan, result.Kind)
	assert.Nil(t, result.Debug)
	assert.False(t, result.Plan.UsedLLM)
}

func TestRecommendNoViableWinnerAlwaysCarriesDebug(t *testing.T) {
	f := newFixture(t)
	// A single underground indoor route cannot satisfy a dog-walk note,
	// which demands outdoors and no underground legs.
	f.candidates.SetCity("berlin", []travel.RouteCandidate{{
		ID: "berlin-ubahn-only", Mode: travel.ModeTransit, DurationMin: 24,
		WalkingMin: 6, Transfers: 1, UsesUnderground: true,
	}})

	req := berlinRequest()
	req.Intent = travel.IntentLeisure
	req.Note = "taking the dog for a walk"

	result := f.orch.Recommend(context.Background(), req)

	require.NoError(t, result.Validate())
	require.Equal(t, KindNoRoutes, result.Kind)
	assert.Contains(t, result.NoRoutes.Reason, "constraints")
	require.NotNil(t, result.Debug, "constraint dead-ends explain themselves even without debug mode")
	require.Len(t, result.Debug.Scores, 1)
	assert.True(t, result.Debug.Scores[0].ViolatesConstraints)
	assert.True(t, result.Debug.NoteHadSignal)
}

func TestRecommendNilCandidateProviderIsAnError(t *testing.T) {
	resolver, err := places.NewResolver(nil)
	require.NoError(t, err)
	orch, err := New(Deps{Resolver: resolver})
	require.NoError(t, err)

	result := orch.Recommend(context.Background(), berlinRequest())

	require.NoError(t, result.Validate())
	require.Equal(t, KindError, result.Kind)
	assert.Contains(t, result.Error.Message, "provider")
}

func TestRecommendMissingFieldsBecomeErrorVariant(t *testing.T) {
	f := newFixture(t)

	req := berlinRequest()
	req.Origin = ""
	req.Debug = true
	result := f.orch.Recommend(context.Background(), req)

	require.NoError(t, result.Validate())
	require.Equal(t, KindError, result.Kind)
	assert.Contains(t, result.Error.Message, "place resolution failed")
	require.NotNil(t, result.Debug)
	assert.Len(t, result.Debug.Invocations, 1)
}

func TestRecommendWeatherFailureDegrades(t *testing.T) {
	resolver, err := places.NewResolver(nil)
	require.NoError(t, err)
	candidates, err := providers.NewFixtureCandidates()
	require.NoError(t, err)
	client := llm.NewMockClient()
	client.Available = false

	orch, err := New(Deps{
		Resolver:   resolver,
		Weather:    providers.FailingWeather{},
		Candidates: candidates,
		LLM:        client,
		Runner:     skill.NewRunner(skill.WithMetrics(skill.MustNewMetrics(prometheus.NewRegistry()))),
		Now:        func() time.Time { return noon },
		Rand:       func() float64 { return 0.99 },
	})
	require.NoError(t, err)

	req := berlinRequest()
	req.Debug = true
	result := orch.Recommend(context.Background(), req)

	require.Equal(t, KindPlan, result.Kind)
	assert.Nil(t, result.Debug.Weather)

	var weatherInv *skill.Invocation
	for i := range result.Debug.Invocations {
		if result.Debug.Invocations[i].Skill == "fetch_weather" {
			weatherInv = &result.Debug.Invocations[i]
		}
	}
	require.NotNil(t, weatherInv)
	assert.True(t, weatherInv.FallbackUsed)
}

func TestRecommendProfileShapesTheDebugConfidence(t *testing.T) {
	f := newFixture(t)
	f.client.Available = false

	profile := prefs.DefaultProfile("u-test")
	profile.Trips = 10
	require.NoError(t, f.profiles.Put(context.Background(), profile))

	req := berlinRequest()
	req.Debug = true
	result := f.orch.Recommend(context.Background(), req)

	require.Equal(t, KindPlan, result.Kind)
	assert.InDelta(t, 0.5, result.Debug.ProfileConfidence, 1e-9)
}

func TestRecommendNightFlagFollowsCityClock(t *testing.T) {
	f := newFixture(t)
	f.client.Available = false

	// 22:30 in Berlin (20:30 UTC during DST).
	lateNow := time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC)
	f.orch.now = func() time.Time { return lateNow }

	req := berlinRequest()
	req.Debug = true
	result := f.orch.Recommend(context.Background(), req)

	require.Equal(t, KindPlan, result.Kind)
	assert.True(t, result.Debug.IsNight)
}

func TestStepInstructionsEndAtTheDestination(t *testing.T) {
	f := newFixture(t)
	f.client.Available = false

	result := f.orch.Recommend(context.Background(), berlinRequest())
	require.Equal(t, KindPlan, result.Kind)
	require.NotEmpty(t, result.Plan.Steps)
	assert.Contains(t, result.Plan.Steps[len(result.Plan.Steps)-1], "Mitte")
}
