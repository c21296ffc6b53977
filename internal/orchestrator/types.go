// Package orchestrator sequences the decision pipeline for one request:
// place resolution, mismatch detection, weather, candidates, note parsing,
// bias merging, scoring, selection, and narrative assembly. Each stage runs
// through the skill runner so the final output always carries a uniform
// invocation trace.
package orchestrator

import (
	"fmt"
	"time"

	"wayfinder/internal/llm"
	"wayfinder/internal/places"
	"wayfinder/internal/skill"
	"wayfinder/internal/travel"
)

// Request is one recommendation request.
type Request struct {
	UserID       string            `json:"userId" validate:"required"`
	Origin       string            `json:"origin" validate:"required"`
	Destination  string            `json:"destination" validate:"required"`
	SelectedCity string            `json:"selectedCity" validate:"required"`
	Intent       travel.TripIntent `json:"intent"`
	Note         string            `json:"note"`
	Debug        bool              `json:"debug"`
}

// Kind discriminates the four result variants.
type Kind string

const (
	KindPlan         Kind = "plan"
	KindCityMismatch Kind = "city_mismatch"
	KindNoRoutes     Kind = "no_routes"
	KindError        Kind = "error"
)

// Result is the discriminated pipeline output. Exactly one variant pointer
// matching Kind is populated; consumers switch on Kind exhaustively.
type Result struct {
	Kind         Kind          `json:"kind"`
	Plan         *Plan         `json:"plan,omitempty"`
	CityMismatch *CityMismatch `json:"cityMismatch,omitempty"`
	NoRoutes     *NoRoutes     `json:"noRoutes,omitempty"`
	Error        *ErrorInfo    `json:"error,omitempty"`
	Debug        *DebugPayload `json:"debug,omitempty"`
}

// Validate enforces the exactly-one-variant invariant.
func (r Result) Validate() error {
	set := 0
	if r.Plan != nil {
		set++
	}
	if r.CityMismatch != nil {
		set++
	}
	if r.NoRoutes != nil {
		set++
	}
	if r.Error != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("result must carry exactly one variant, has %d", set)
	}
	want := map[Kind]bool{
		KindPlan:         r.Plan != nil,
		KindCityMismatch: r.CityMismatch != nil,
		KindNoRoutes:     r.NoRoutes != nil,
		KindError:        r.Error != nil,
	}
	if !want[r.Kind] {
		return fmt.Errorf("kind %q does not match the populated variant", r.Kind)
	}
	return nil
}

// Plan is the success variant.
type Plan struct {
	CandidateID    string                 `json:"candidateId"`
	Mode           travel.Mode            `json:"mode"`
	DurationMin    float64                `json:"durationMin"`
	Steps          []string               `json:"steps"`
	Reasoning      string                 `json:"reasoning"`
	Confidence     float64                `json:"confidence"`
	KeyFactors     []string               `json:"keyFactors,omitempty"`
	Tradeoff       string                 `json:"tradeoff,omitempty"`
	WalkingNote    string                 `json:"walkingNote,omitempty"`
	Archetype      string                 `json:"archetype"`
	UsedLLM        bool                   `json:"usedLlm"`
	MemoryCallback string                 `json:"memoryCallback,omitempty"`
	DepthLayer     DepthLayer             `json:"depthLayer"`
	Candidate      *travel.RouteCandidate `json:"candidate,omitempty"`
}

// CityMismatch is returned when the resolved places point at a different
// city than the one selected.
type CityMismatch struct {
	SelectedCity  string  `json:"selectedCity"`
	SuggestedCity string  `json:"suggestedCity"`
	SuggestedName string  `json:"suggestedName"`
	Confidence    float64 `json:"confidence"`
	Message       string  `json:"message"`
}

// NoRoutes is returned when the provider has no candidates, or scoring
// leaves no viable winner.
type NoRoutes struct {
	Reason string `json:"reason"`
}

// ErrorInfo is the fatal variant.
type ErrorInfo struct {
	Message string `json:"message"`
}

// DepthLayer is the narrative bundle attached to a successful plan.
type DepthLayer struct {
	Presence       string   `json:"presence"`
	Framing        string   `json:"framing"`
	Insights       []string `json:"insights,omitempty"`
	Responsibility string   `json:"responsibility"`
	Refined        bool     `json:"refined"`
}

// DebugPayload carries the full pipeline introspection, populated only when
// the request asks for it.
type DebugPayload struct {
	RequestedAt       time.Time                `json:"requestedAt"`
	Invocations       []skill.Invocation       `json:"invocations"`
	OriginResolution  places.Resolution        `json:"originResolution"`
	DestResolution    places.Resolution        `json:"destResolution"`
	InferredCity      string                   `json:"inferredCity"`
	Weather           *travel.Weather          `json:"weather,omitempty"`
	IsNight           bool                     `json:"isNight"`
	Constraints       travel.HardConstraints   `json:"constraints"`
	NoteBiases        travel.SoftBiases        `json:"noteBiases"`
	ProfileBiases     travel.SoftBiases        `json:"profileBiases"`
	MergedBiases      travel.SoftBiases        `json:"mergedBiases"`
	NoteHadSignal     bool                     `json:"noteHadSignal"`
	Scores            []travel.ScoredCandidate `json:"scores,omitempty"`
	LLMCall           *llm.CallMeta            `json:"llmCall,omitempty"`
	ProfileConfidence float64                  `json:"profileConfidence"`
}
