// Package noteparse converts a free-text trip note plus the declared trip
// intent into hard constraints and soft biases.
//
// Rules are an ordered list of pure (text) -> patch functions folded with
// explicit accumulation, so evaluation is order-independent except where
// additions are explicitly additive. Two literal normalization paths exist:
// a matched (or any non-empty) note accumulates raw deltas from 0 and is
// jointly normalized afterwards, while an empty note starts every bias at
// the neutral 0.5 and applies intent baselines directly. The two formulas
// agree only when no rule fires; both are preserved deliberately.
package noteparse

import (
	"regexp"
	"strings"

	"wayfinder/internal/travel"
)

// Result is the parser's output for one request.
type Result struct {
	Constraints      travel.HardConstraints `json:"constraints"`
	Biases           travel.SoftBiases      `json:"biases"`
	ArrivalBufferMin float64                `json:"arrivalBufferMin,omitempty"`
	Reasons          []string               `json:"reasons,omitempty"`
	HasSignal        bool                   `json:"hasSignal"`
}

// patch accumulates the effect of every fired rule before normalization.
type patch struct {
	constraints   travel.HardConstraints
	calm          float64
	fast          float64
	comfort       float64
	cost          float64
	arrivalBuffer float64
	reasons       []string
}

type rule struct {
	reason   string
	patterns []*regexp.Regexp
	apply    func(p *patch)
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

// rules fire in order; multiple rules may fire and their bias deltas add.
var rules = []rule{
	{
		reason:   "dog_walk",
		patterns: compile(`\bdog walk\b`, `\bwalk(ing)? (the|my|our) dog\b`, `\bwith (my|the|our) dog\b`, `\bdog\b`),
		apply: func(p *patch) {
			p.constraints.PreferOutdoors = boolPtr(true)
			p.constraints.AvoidUnderground = boolPtr(true)
			p.constraints.MinContinuousWalkMin = f64Ptr(15)
			p.calm += 0.4
			p.comfort += 0.2
		},
	},
	{
		reason:   "urgent",
		patterns: compile(`\bin a hurry\b`, `\brunning late\b`, `\basap\b`, `\burgent\b`, `\bquick(est|ly)?\b`, `\bfast(est)?\b`),
		apply: func(p *patch) {
			p.fast += 1.0
			p.comfort -= 0.2
			p.arrivalBuffer -= 5
		},
	},
	{
		reason:   "fatigue",
		patterns: compile(`\btired\b`, `\bexhausted\b`, `\blong day\b`, `\bfeet hurt\b`, `\bworn out\b`),
		apply: func(p *patch) {
			p.constraints.MaxWalkMin = f64Ptr(10)
			p.comfort += 0.8
			p.calm += 0.3
			p.fast -= 0.2
		},
	},
	{
		reason:   "budget",
		patterns: compile(`\bcheap(est)?\b`, `\bbudget\b`, `\bsave money\b`, `\bbroke\b`, `\blow on cash\b`, `\bno money\b`),
		apply: func(p *patch) {
			p.cost += 1.0
			p.comfort -= 0.3
		},
	},
	{
		reason:   "unwind",
		patterns: compile(`\brelax(ed|ing)?\b`, `\bno stress\b`, `\btake it easy\b`, `\bchill\b`, `\bno rush\b`),
		apply: func(p *patch) {
			p.calm += 0.8
			p.comfort += 0.4
			p.fast -= 0.4
		},
	},
	{
		reason:   "avoid_crowds",
		patterns: compile(`\bcrowd(s|ed)?\b`, `\bpacked\b`, `\brush hour\b`, `\btoo many people\b`),
		apply: func(p *patch) {
			p.constraints.AvoidUnderground = boolPtr(true)
			p.calm += 0.6
		},
	},
	{
		reason:   "scenic",
		patterns: compile(`\bscenic\b`, `\bfresh air\b`, `\bnice view\b`, `\boutdoors?\b`, `\boutside\b`, `\bstretch my legs\b`),
		apply: func(p *patch) {
			p.constraints.PreferOutdoors = boolPtr(true)
			p.calm += 0.4
			p.comfort += 0.2
		},
	},
	{
		reason:   "accessibility",
		patterns: compile(`\bwheelchair\b`, `\bstroller\b`, `\baccessib(le|ility)\b`, `\bluggage\b`, `\bheavy bags?\b`, `\bsuitcase\b`),
		apply: func(p *patch) {
			p.constraints.RequireAccessible = boolPtr(true)
			p.comfort += 0.5
		},
	},
	{
		reason:   "stay_dry",
		patterns: compile(`\bstay dry\b`, `\bget wet\b`, `\bhate (the )?rain\b`, `\bavoid (the )?rain\b`),
		apply: func(p *patch) {
			p.constraints.MaxWalkMin = f64Ptr(10)
			p.comfort += 0.4
		},
	},
}

// intentDeltas are the intent-specific baseline adjustments added after all
// note rules have run (or applied directly on the neutral baseline when the
// note is empty).
func intentDeltas(intent travel.TripIntent) (calm, fast, comfort, cost float64) {
	switch intent {
	case travel.IntentCommute:
		return 0, 0.3, 0, 0.1
	case travel.IntentLeisure:
		return 0.3, -0.1, 0.1, 0
	case travel.IntentErrand:
		return 0, 0.2, 0, 0.2
	case travel.IntentSocial:
		return 0.1, 0, 0.2, 0
	default:
		return 0, 0, 0, 0
	}
}

// Parse runs the keyword rules over the lowercased note text and folds the
// resulting patches with the intent baseline into the final constraint and
// bias output.
func Parse(note string, intent travel.TripIntent) Result {
	text := strings.ToLower(strings.TrimSpace(note))

	if text == "" {
		// Empty-note path: neutral baseline plus intent adjustments only.
		calm, fast, comfort, cost := intentDeltas(intent)
		return Result{
			Biases: travel.SoftBiases{
				Calm:    clamp01(0.5 + calm),
				Fast:    clamp01(0.5 + fast),
				Comfort: clamp01(0.5 + comfort),
				Cost:    clamp01(0.5 + cost),
			},
		}
	}

	var p patch
	for _, r := range rules {
		for _, pattern := range r.patterns {
			if pattern.MatchString(text) {
				r.apply(&p)
				p.reasons = append(p.reasons, r.reason)
				break
			}
		}
	}

	calm, fast, comfort, cost := intentDeltas(intent)
	p.calm += calm
	p.fast += fast
	p.comfort += comfort
	p.cost += cost

	return Result{
		Constraints:      p.constraints,
		Biases:           normalizeBiases(p.calm, p.fast, p.comfort, p.cost),
		ArrivalBufferMin: p.arrivalBuffer,
		Reasons:          p.reasons,
		HasSignal:        len(p.reasons) > 0,
	}
}

// normalizeBiases jointly maps the raw accumulators into [0,1]: divide each
// by max(|largest accumulator|, 1), map via (x+1)/2, then clamp.
func normalizeBiases(calm, fast, comfort, cost float64) travel.SoftBiases {
	scale := 1.0
	for _, v := range []float64{calm, fast, comfort, cost} {
		if abs := absf(v); abs > scale {
			scale = abs
		}
	}
	norm := func(v float64) float64 {
		return clamp01((v/scale + 1) / 2)
	}
	return travel.SoftBiases{
		Calm:    norm(calm),
		Fast:    norm(fast),
		Comfort: norm(comfort),
		Cost:    norm(cost),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
