// Package scoring applies hard-constraint vetoes and multi-dimensional
// weighted scoring to route candidates. Scoring is fully deterministic:
// the same candidates, constraints, biases, and context always produce the
// same ranking.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"wayfinder/internal/travel"
)

// Context is the per-request environment the scorer reads.
type Context struct {
	Weather *travel.Weather
	IsNight bool
	Intent  travel.TripIntent
}

// Result is the full scoring outcome for one candidate set.
type Result struct {
	Scored     []travel.ScoredCandidate `json:"scored"`
	BestID     string                   `json:"bestId"`
	BestViable bool                     `json:"bestViable"`
}

// Dimension weights per trip intent; unknown intents get equal quarters.
var intentWeights = map[travel.TripIntent]travel.SoftBiases{
	travel.IntentCommute: {Calm: 0.15, Fast: 0.40, Comfort: 0.20, Cost: 0.25},
	travel.IntentLeisure: {Calm: 0.35, Fast: 0.15, Comfort: 0.30, Cost: 0.20},
	travel.IntentErrand:  {Calm: 0.15, Fast: 0.35, Comfort: 0.20, Cost: 0.30},
	travel.IntentSocial:  {Calm: 0.25, Fast: 0.20, Comfort: 0.35, Cost: 0.20},
}

var defaultWeights = travel.SoftBiases{Calm: 0.25, Fast: 0.25, Comfort: 0.25, Cost: 0.25}

// violationPenalty scales the total of a constraint-violating candidate.
// Violations penalize heavily but never eliminate: the pipeline must always
// be able to nominate a winner.
const violationPenalty = 0.1

// ScoreCandidates produces one ranked list whose length equals the input
// length, and a non-empty BestID whenever the input is non-empty. The best
// candidate is the highest-scoring viable one when any viable candidates
// exist, else the highest-scoring candidate overall.
func ScoreCandidates(candidates []travel.RouteCandidate, constraints travel.HardConstraints, biases travel.SoftBiases, sctx Context) Result {
	scored := make([]travel.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, scoreOne(candidate, constraints, biases, sctx))
	}

	ranked := make([]travel.ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	result := Result{Scored: ranked}
	for _, sc := range ranked {
		if !sc.ViolatesConstraints {
			result.BestID = sc.CandidateID
			result.BestViable = true
			break
		}
	}
	if result.BestID == "" && len(ranked) > 0 {
		result.BestID = ranked[0].CandidateID
	}
	return result
}

func scoreOne(c travel.RouteCandidate, constraints travel.HardConstraints, biases travel.SoftBiases, sctx Context) travel.ScoredCandidate {
	violations := EvaluateConstraints(c, constraints)

	calm := biasAdjust(calmScore(c, sctx), biases.Calm)
	fast := biasAdjust(fastScore(c), biases.Fast)
	comfort := biasAdjust(comfortScore(c, sctx), biases.Comfort)
	cost := biasAdjust(costScore(c), biases.Cost)

	weights, ok := intentWeights[sctx.Intent]
	if !ok {
		weights = defaultWeights
	}
	total := calm*weights.Calm + fast*weights.Fast + comfort*weights.Comfort + cost*weights.Cost
	if len(violations) > 0 {
		total *= violationPenalty
	}

	return travel.ScoredCandidate{
		CandidateID: c.ID,
		Score:       round1(total),
		Breakdown: travel.ScoreBreakdown{
			Calm:    round1(calm),
			Fast:    round1(fast),
			Comfort: round1(comfort),
			Cost:    round1(cost),
			Total:   round1(total),
		},
		ViolatesConstraints: len(violations) > 0,
		ViolationReasons:    violations,
	}
}

// biasAdjust shifts a dimension score by at most ±15%: a bias can tilt a
// close call but never invert a ranking on its own.
func biasAdjust(score, bias float64) float64 {
	return score * (1 + (bias-0.5)*0.3)
}

// calmScore starts at 100 and subtracts for everything that makes a route
// feel hectic. Driving at night earns part of the night penalty back; a car
// is calmer at night than walking.
func calmScore(c travel.RouteCandidate, sctx Context) float64 {
	score := 100.0
	score -= 15 * float64(c.Transfers)
	if c.UsesUnderground {
		score -= 10
	}
	if c.WalkingMin > 15 {
		score -= 1.5 * (c.WalkingMin - 15)
	}
	if sctx.IsNight {
		score -= 15
		if c.Mode == travel.ModeDriving {
			score += 10
		}
	}
	return clamp100(score)
}

// fastScore maps total duration linearly from 10 minutes (100) down to 90
// minutes (0).
func fastScore(c travel.RouteCandidate) float64 {
	return clamp100(100 * (90 - c.DurationMin) / 80)
}

func comfortScore(c travel.RouteCandidate, sctx Context) float64 {
	score := 100.0
	if sctx.Weather != nil {
		if !sctx.Weather.IsOutdoorFriendly {
			score -= 2.5 * c.WalkingMin
			if c.Mode == travel.ModeDriving {
				score += 15
			}
		}
		if extremeTemperature(sctx.Weather.TemperatureC) {
			score -= 2 * c.WalkingMin
		}
	}
	score -= 12 * float64(c.Transfers)
	if c.WalkingMin > 10 {
		score -= 1.5 * (c.WalkingMin - 10)
	}
	return clamp100(score)
}

func costScore(c travel.RouteCandidate) float64 {
	switch c.Mode {
	case travel.ModeWalking:
		return 100
	case travel.ModeTransit:
		return 85
	case travel.ModeDriving:
		if c.CostEstimate != nil {
			score := 95 - 2*(*c.CostEstimate)
			if score < 30 {
				return 30
			}
			if score > 100 {
				return 100
			}
			return score
		}
		return 50
	default:
		return 50
	}
}

func extremeTemperature(tempC float64) bool {
	return tempC < -5 || tempC > 32
}

// EvaluateConstraints returns a human-readable reason for every hard
// constraint the candidate fails. An empty slice means the candidate is
// viable.
func EvaluateConstraints(c travel.RouteCandidate, hc travel.HardConstraints) []string {
	var reasons []string

	if hc.AvoidUnderground != nil && *hc.AvoidUnderground && c.UsesUnderground {
		reasons = append(reasons, "route uses the underground, which this trip avoids")
	}
	if hc.PreferOutdoors != nil && *hc.PreferOutdoors && !c.IsOutdoorRoute {
		reasons = append(reasons, "route stays indoors despite an outdoor preference")
	}
	if hc.MinContinuousWalkMin != nil {
		longest := longestContinuousWalk(c)
		if longest < *hc.MinContinuousWalkMin {
			reasons = append(reasons, fmt.Sprintf("longest continuous walk is %.0f min, below the required %.0f min", longest, *hc.MinContinuousWalkMin))
		}
	}
	if hc.MaxWalkMin != nil && c.WalkingMin > *hc.MaxWalkMin {
		reasons = append(reasons, fmt.Sprintf("total walking of %.0f min exceeds the %.0f min limit", c.WalkingMin, *hc.MaxWalkMin))
	}
	if hc.RequireAccessible != nil && *hc.RequireAccessible && !accessibleHeuristic(c) {
		reasons = append(reasons, "underground transfers make this route hard to do step-free")
	}
	return reasons
}

// longestContinuousWalk finds the longest single walking segment, falling
// back to the total walking time when no step detail is available.
func longestContinuousWalk(c travel.RouteCandidate) float64 {
	if len(c.Steps) == 0 {
		return c.WalkingMin
	}
	longest := 0.0
	for _, step := range c.Steps {
		if step.Type == travel.StepWalk && step.DurationMin > longest {
			longest = step.DurationMin
		}
	}
	return longest
}

// accessibleHeuristic approximates step-free viability: multiple transfers
// through underground stations usually mean stairs.
func accessibleHeuristic(c travel.RouteCandidate) bool {
	return !(c.UsesUnderground && c.Transfers >= 2)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
