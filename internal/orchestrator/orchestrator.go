package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"wayfinder/internal/decision"
	"wayfinder/internal/llm"
	"wayfinder/internal/logging"
	"wayfinder/internal/noteparse"
	"wayfinder/internal/places"
	"wayfinder/internal/prefs"
	"wayfinder/internal/providers"
	"wayfinder/internal/scoring"
	"wayfinder/internal/skill"
	"wayfinder/internal/travel"
)

// Bias merge weights. The note leads when it carries explicit signal; the
// learned profile leads otherwise.
const (
	noteLeadWeight    = 0.6
	profileLeadWeight = 0.2
)

const recentEventWindow = 20

// Deps are the orchestrator's collaborators. Resolver is required;
// Candidates may be nil, in which case every request yields the error
// variant. Now and Rand default to the real clock and math/rand.
type Deps struct {
	Resolver   *places.Resolver
	Weather    providers.WeatherProvider
	Candidates providers.CandidateProvider
	Profiles   prefs.ProfileStore
	LLM        llm.Client
	Runner     *skill.Runner
	Logger     logging.Logger

	Now  func() time.Time
	Rand func() float64
}

// Orchestrator runs the full decision pipeline for one request at a time.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	resolver   *places.Resolver
	weather    providers.WeatherProvider
	candidates providers.CandidateProvider
	profiles   prefs.ProfileStore
	client     llm.Client
	engine     *decision.Engine
	runner     *skill.Runner
	logger     logging.Logger
	now        func() time.Time
	rand       func() float64
}

// New wires an Orchestrator from its dependencies.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("orchestrator requires a place resolver")
	}
	o := &Orchestrator{
		resolver:   deps.Resolver,
		weather:    deps.Weather,
		candidates: deps.Candidates,
		profiles:   deps.Profiles,
		client:     deps.LLM,
		engine:     decision.NewEngine(deps.LLM, deps.Logger),
		runner:     deps.Runner,
		logger:     logging.OrNop(deps.Logger),
		now:        deps.Now,
		rand:       deps.Rand,
	}
	if o.profiles == nil {
		o.profiles = prefs.NewMemoryStore()
	}
	if o.runner == nil {
		o.runner = skill.NewRunner(skill.WithLogger(deps.Logger))
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.rand == nil {
		o.rand = rand.Float64
	}
	return o, nil
}

// Stage payloads. These are the schemas the skill runner validates; keeping
// them as named structs also keeps the trace readable.

type resolveInput struct {
	Origin       string `validate:"required"`
	Destination  string `validate:"required"`
	SelectedCity string `validate:"required"`
}

type resolveOutput struct {
	Origin      places.Resolution
	Destination places.Resolution
	Inferred    places.Resolution
}

type weatherOutput struct {
	Weather travel.Weather
	OK      bool
}

type candidatesOutput struct {
	Candidates []travel.RouteCandidate
}

type profileOutput struct {
	Profile prefs.Profile
	Recent  []prefs.Event
}

type mergeOutput struct {
	NoteResult    noteparse.Result
	ProfileBiases travel.SoftBiases
	Merged        travel.SoftBiases
}

// Recommend runs the pipeline and returns exactly one result variant. All
// failures are absorbed into the error variant; the method itself never
// fails.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) Result {
	metrics := o.runner.Metrics()
	metrics.IncActiveRequests()
	defer metrics.DecActiveRequests()

	var trace []skill.Invocation
	record := func(inv skill.Invocation) { trace = append(trace, inv) }

	if o.candidates == nil {
		return errorResult("no route candidate provider is configured", nil, req.Debug)
	}

	// Resolve both places and infer the trip's city.
	resolved, inv, err := skill.Run(ctx, o.runner, skill.Skill[resolveInput, resolveOutput]{
		Name: "resolve_places",
		Execute: func(_ context.Context, in resolveInput) (resolveOutput, error) {
			origin := o.resolver.Resolve(in.Origin, in.SelectedCity)
			dest := o.resolver.Resolve(in.Destination, in.SelectedCity)
			return resolveOutput{
				Origin:      origin,
				Destination: dest,
				Inferred:    places.InferCity(origin, dest),
			}, nil
		},
	}, resolveInput{Origin: req.Origin, Destination: req.Destination, SelectedCity: req.SelectedCity})
	record(inv)
	if err != nil {
		return errorResult(fmt.Sprintf("place resolution failed: %v", err), trace, req.Debug)
	}

	// The mismatch gate runs before anything expensive. A triggered
	// mismatch short-circuits weather, scoring, and generation entirely.
	mismatch, inv, _ := skill.Run(ctx, o.runner, skill.Skill[places.MismatchInput, places.Mismatch]{
		Name: "detect_mismatch",
		Execute: func(_ context.Context, in places.MismatchInput) (places.Mismatch, error) {
			return o.resolver.DetectMismatch(in), nil
		},
	}, places.MismatchInput{
		SelectedCityCode: req.SelectedCity,
		InferredCityCode: resolved.Inferred.CityCode,
		Confidence:       resolved.Inferred.Confidence,
		OriginText:       req.Origin,
		DestinationText:  req.Destination,
	})
	record(inv)
	if mismatch.IsMismatch {
		result := Result{
			Kind: KindCityMismatch,
			CityMismatch: &CityMismatch{
				SelectedCity:  req.SelectedCity,
				SuggestedCity: mismatch.SuggestedCityCode,
				SuggestedName: mismatch.SuggestedCityName,
				Confidence:    resolved.Inferred.Confidence,
				Message:       mismatch.Message,
			},
		}
		if req.Debug {
			result.Debug = o.debugPayload(trace, resolved, nil, false, noteparse.Result{}, travel.SoftBiases{}, travel.SoftBiases{}, nil, 0)
		}
		return result
	}

	cityCode := resolved.Inferred.CityCode
	if cityCode == "" {
		cityCode = req.SelectedCity
	}
	isNight := o.isNight(cityCode)

	// Weather is best effort. The fallback marks it absent rather than
	// failing the request.
	weatherOut, inv, _ := skill.Run(ctx, o.runner, skill.Skill[string, weatherOutput]{
		Name: "fetch_weather",
		Execute: func(ctx context.Context, city string) (weatherOutput, error) {
			if o.weather == nil {
				return weatherOutput{}, fmt.Errorf("no weather provider configured")
			}
			w, err := o.weather.Current(ctx, city)
			if err != nil {
				return weatherOutput{}, err
			}
			return weatherOutput{Weather: w, OK: true}, nil
		},
		Fallback: func(context.Context, string) weatherOutput { return weatherOutput{} },
	}, cityCode)
	record(inv)
	var weather *travel.Weather
	if weatherOut.OK {
		weather = &weatherOut.Weather
	}

	// Candidates have no fallback: a provider failure is fatal, while an
	// empty result is the legitimate no_routes outcome.
	candOut, inv, err := skill.Run(ctx, o.runner, skill.Skill[resolveInput, candidatesOutput]{
		Name: "fetch_candidates",
		Execute: func(ctx context.Context, in resolveInput) (candidatesOutput, error) {
			list, err := o.candidates.Candidates(ctx, in.Origin, in.Destination, cityCode)
			if err != nil {
				return candidatesOutput{}, err
			}
			return candidatesOutput{Candidates: list}, nil
		},
	}, resolveInput{Origin: req.Origin, Destination: req.Destination, SelectedCity: req.SelectedCity})
	record(inv)
	if err != nil {
		return errorResult(fmt.Sprintf("route candidates unavailable: %v", err), trace, req.Debug)
	}
	if len(candOut.Candidates) == 0 {
		result := Result{Kind: KindNoRoutes, NoRoutes: &NoRoutes{
			Reason: fmt.Sprintf("no routes found between %q and %q", req.Origin, req.Destination),
		}}
		if req.Debug {
			result.Debug = o.debugPayload(trace, resolved, weather, isNight, noteparse.Result{}, travel.SoftBiases{}, travel.SoftBiases{}, nil, 0)
		}
		return result
	}

	// Profile load falls back to defaults so a broken store degrades to
	// first-use behavior instead of failing the request.
	profOut, inv, _ := skill.Run(ctx, o.runner, skill.Skill[string, profileOutput]{
		Name: "load_profile",
		Execute: func(ctx context.Context, userID string) (profileOutput, error) {
			profile, found, err := o.profiles.Get(ctx, userID)
			if err != nil {
				return profileOutput{}, err
			}
			if !found {
				profile = prefs.DefaultProfile(userID)
			}
			recent, err := o.profiles.RecentEvents(ctx, userID, recentEventWindow)
			if err != nil {
				return profileOutput{}, err
			}
			return profileOutput{Profile: profile, Recent: recent}, nil
		},
		Fallback: func(_ context.Context, userID string) profileOutput {
			return profileOutput{Profile: prefs.DefaultProfile(userID)}
		},
	}, req.UserID)
	record(inv)
	profile := profOut.Profile

	// Parse the note and merge its biases with the profile's.
	merged, inv, _ := skill.Run(ctx, o.runner, skill.Skill[string, mergeOutput]{
		Name: "parse_note",
		Execute: func(_ context.Context, note string) (mergeOutput, error) {
			noteResult := noteparse.Parse(note, req.Intent)
			profileBiases := prefs.ToScoringBiases(profile)
			weight := profileLeadWeight
			if noteResult.HasSignal {
				weight = noteLeadWeight
			}
			return mergeOutput{
				NoteResult:    noteResult,
				ProfileBiases: profileBiases,
				Merged:        travel.Blend(noteResult.Biases, profileBiases, weight),
			}, nil
		},
	}, req.Note)
	record(inv)

	// Score.
	scored, inv, _ := skill.Run(ctx, o.runner, skill.Skill[candidatesOutput, scoring.Result]{
		Name: "score_candidates",
		Execute: func(_ context.Context, in candidatesOutput) (scoring.Result, error) {
			return scoring.ScoreCandidates(in.Candidates, merged.NoteResult.Constraints, merged.Merged, scoring.Context{
				Weather: weather,
				IsNight: isNight,
				Intent:  req.Intent,
			}), nil
		},
	}, candOut)
	record(inv)

	confidence := prefs.Confidence(profile.Trips, profOut.Recent)
	if !scored.BestViable {
		return Result{
			Kind:     KindNoRoutes,
			NoRoutes: &NoRoutes{Reason: "every route conflicts with your current constraints"},
			Debug:    o.debugPayload(trace, resolved, weather, isNight, merged.NoteResult, merged.ProfileBiases, merged.Merged, scored.Scored, confidence),
		}
	}

	// Select.
	selection, inv, err := skill.Run(ctx, o.runner, skill.Skill[candidatesOutput, decision.Selection]{
		Name: "select_route",
		Execute: func(ctx context.Context, in candidatesOutput) (decision.Selection, error) {
			return o.engine.Select(ctx, in.Candidates, scored.Scored, decision.Input{
				Intent:  req.Intent,
				Note:    req.Note,
				Biases:  merged.Merged,
				Weather: weather,
				IsNight: isNight,
				Profile: &profile,
			})
		},
	}, candOut)
	record(inv)
	if err != nil {
		return errorResult(fmt.Sprintf("route selection failed: %v", err), trace, req.Debug)
	}

	chosen := candOut.Candidates[selection.SelectedIndex]
	breakdown := breakdownFor(scored.Scored, chosen.ID)

	plan := &Plan{
		CandidateID: chosen.ID,
		Mode:        chosen.Mode,
		DurationMin: chosen.DurationMin,
		Steps:       stepInstructions(chosen, req.Destination),
		Reasoning:   selection.Reasoning,
		Confidence:  selection.Confidence,
		KeyFactors:  selection.KeyFactors,
		Tradeoff:    selection.Tradeoff,
		WalkingNote: selection.WalkingNote,
		Archetype:   archetype(breakdown),
		UsedLLM:     selection.UsedLLM,
		Candidate:   &chosen,
	}
	if insight, ok := prefs.CallbackInsight(profile, profOut.Recent, o.rand); ok {
		plan.MemoryCallback = insight
	}
	plan.DepthLayer = depthLayer(ctx, o.client, o.logger, plan, req, weather, isNight)

	result := Result{Kind: KindPlan, Plan: plan}
	if req.Debug {
		result.Debug = o.debugPayload(trace, resolved, weather, isNight, merged.NoteResult, merged.ProfileBiases, merged.Merged, scored.Scored, confidence)
	}
	return result
}

func (o *Orchestrator) debugPayload(trace []skill.Invocation, resolved resolveOutput, weather *travel.Weather, isNight bool, note noteparse.Result, profileBiases, mergedBiases travel.SoftBiases, scores []travel.ScoredCandidate, confidence float64) *DebugPayload {
	payload := &DebugPayload{
		RequestedAt:       o.now(),
		Invocations:       trace,
		OriginResolution:  resolved.Origin,
		DestResolution:    resolved.Destination,
		InferredCity:      resolved.Inferred.CityCode,
		Weather:           weather,
		IsNight:           isNight,
		Constraints:       note.Constraints,
		NoteBiases:        note.Biases,
		ProfileBiases:     profileBiases,
		MergedBiases:      mergedBiases,
		NoteHadSignal:     note.HasSignal,
		Scores:            scores,
		ProfileConfidence: confidence,
	}
	if o.client != nil {
		meta := o.client.LastCall()
		if meta.Provider != "" {
			payload.LLMCall = &meta
		}
	}
	return payload
}

// isNight checks the local clock in the trip city's timezone; between 21:00
// and 06:00 counts as night.
func (o *Orchestrator) isNight(cityCode string) bool {
	loc := time.Local
	if profile, ok := o.resolver.CityProfile(cityCode); ok && profile.Timezone != "" {
		if l, err := time.LoadLocation(profile.Timezone); err == nil {
			loc = l
		}
	}
	hour := o.now().In(loc).Hour()
	return hour >= 21 || hour < 6
}

func breakdownFor(scored []travel.ScoredCandidate, candidateID string) travel.ScoreBreakdown {
	for _, s := range scored {
		if s.CandidateID == candidateID {
			return s.Breakdown
		}
	}
	return travel.ScoreBreakdown{}
}

func errorResult(message string, trace []skill.Invocation, debug bool) Result {
	result := Result{Kind: KindError, Error: &ErrorInfo{Message: message}}
	if debug && len(trace) > 0 {
		result.Debug = &DebugPayload{Invocations: trace}
	}
	return result
}
