// Package travel holds the domain types shared across the decision pipeline.
//
// Everything in this package is plain data: candidates arrive from an external
// route provider, constraints and biases are derived per request, and scored
// candidates are recomputed on every call. Nothing here is persisted.
package travel

// Mode is the overall travel mode of a route candidate.
type Mode string

const (
	ModeTransit   Mode = "transit"
	ModeWalking   Mode = "walking"
	ModeDriving   Mode = "driving"
	ModeBicycling Mode = "bicycling"
)

// StepType classifies a single leg within a route candidate.
type StepType string

const (
	StepWalk    StepType = "walk"
	StepTransit StepType = "transit"
	StepDrive   StepType = "drive"
	StepCycle   StepType = "cycle"
	StepWait    StepType = "wait"
)

// Step is one leg of a proposed route.
type Step struct {
	Type        StepType `json:"type"`
	DurationMin float64  `json:"durationMin"`
	DistanceKm  float64  `json:"distanceKm,omitempty"`
	Line        string   `json:"line,omitempty"`
}

// RouteCandidate is a proposed way to travel, supplied by an external
// provider. Candidates are immutable within the pipeline.
type RouteCandidate struct {
	ID              string   `json:"id"`
	Mode            Mode     `json:"mode"`
	DurationMin     float64  `json:"durationMin"`
	WalkingMin      float64  `json:"walkingMin"`
	Transfers       int      `json:"transfers"`
	UsesUnderground bool     `json:"usesUnderground"`
	IsOutdoorRoute  bool     `json:"isOutdoorRoute"`
	CostEstimate    *float64 `json:"costEstimate,omitempty"`
	Steps           []Step   `json:"steps,omitempty"`
}

// HardConstraints are must/must-not conditions derived from the user's note
// and trip intent. A nil field means "no constraint". Violating a present
// constraint vetoes a candidate (heavy penalty, not removal).
type HardConstraints struct {
	AvoidUnderground     *bool    `json:"avoidUnderground,omitempty"`
	PreferOutdoors       *bool    `json:"preferOutdoors,omitempty"`
	MinContinuousWalkMin *float64 `json:"minContinuousWalkMin,omitempty"`
	MaxWalkMin           *float64 `json:"maxWalkMin,omitempty"`
	RequireAccessible    *bool    `json:"requireAccessible,omitempty"`
}

// SoftBiases weight the four scoring dimensions. Each value lies in [0,1]
// with 0.5 meaning neutral. Two producers emit this shape (the note parser
// and the preference memory); they are combined by weighted blend only.
type SoftBiases struct {
	Calm    float64 `json:"calm" validate:"gte=0,lte=1"`
	Fast    float64 `json:"fast" validate:"gte=0,lte=1"`
	Comfort float64 `json:"comfort" validate:"gte=0,lte=1"`
	Cost    float64 `json:"cost" validate:"gte=0,lte=1"`
}

// NeutralBiases returns the all-neutral bias vector.
func NeutralBiases() SoftBiases {
	return SoftBiases{Calm: 0.5, Fast: 0.5, Comfort: 0.5, Cost: 0.5}
}

// Blend combines two bias vectors with the given weight on a (the rest on b).
// The result stays in [0,1] because it is a convex combination of values in
// [0,1].
func Blend(a, b SoftBiases, weightA float64) SoftBiases {
	if weightA < 0 {
		weightA = 0
	}
	if weightA > 1 {
		weightA = 1
	}
	wb := 1 - weightA
	return SoftBiases{
		Calm:    a.Calm*weightA + b.Calm*wb,
		Fast:    a.Fast*weightA + b.Fast*wb,
		Comfort: a.Comfort*weightA + b.Comfort*wb,
		Cost:    a.Cost*weightA + b.Cost*wb,
	}
}

// ScoreBreakdown records the bias-adjusted per-dimension scores.
type ScoreBreakdown struct {
	Calm    float64 `json:"calm"`
	Fast    float64 `json:"fast"`
	Comfort float64 `json:"comfort"`
	Cost    float64 `json:"cost"`
	Total   float64 `json:"total"`
}

// ScoredCandidate is the per-request scoring result for one candidate.
type ScoredCandidate struct {
	CandidateID         string         `json:"candidateId"`
	Score               float64        `json:"score"`
	Breakdown           ScoreBreakdown `json:"breakdown"`
	ViolatesConstraints bool           `json:"violatesConstraints"`
	ViolationReasons    []string       `json:"violationReasons,omitempty"`
}

// TripIntent is the user's declared purpose for the trip.
type TripIntent string

const (
	IntentCommute TripIntent = "commute"
	IntentLeisure TripIntent = "leisure"
	IntentErrand  TripIntent = "errand"
	IntentSocial  TripIntent = "social"
)

// KnownIntent reports whether intent is one of the declared values.
func KnownIntent(intent TripIntent) bool {
	switch intent {
	case IntentCommute, IntentLeisure, IntentErrand, IntentSocial:
		return true
	}
	return false
}

// Weather is the point-in-time weather snapshot for a city.
type Weather struct {
	IsOutdoorFriendly bool    `json:"isOutdoorFriendly"`
	TemperatureC      float64 `json:"temperature"`
	Condition         string  `json:"condition"`
}

// CityProfile is static metadata about a supported city.
type CityProfile struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	HasMetro bool   `json:"hasMetro"`
}
