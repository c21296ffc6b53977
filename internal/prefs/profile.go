// Package prefs implements the learned per-user preference memory: a
// slowly-drifting profile mutated only through event application, a
// confidence function over accumulated behavior, and a throttled one-line
// "memory callback" insight.
package prefs

import (
	"time"

	"wayfinder/internal/travel"
)

// Profile is the long-lived user preference state. Created with fixed
// defaults on first use; mutated only through ApplyEvent; never deleted,
// only reset to defaults on explicit request.
type Profile struct {
	UserID string `json:"userId"`

	// Walking tolerance window in minutes. Invariant: Min <= Max.
	WalkingToleranceMin float64 `json:"walkingToleranceMin"` // clamped [0,60]
	WalkingToleranceMax float64 `json:"walkingToleranceMax"` // clamped [5,60]

	TransferTolerance float64 `json:"transferTolerance"` // [0,1]

	// Directional biases in [-1,1]. Positive CalmQuickBias favors quick
	// routes; positive CostComfortBias favors comfort over cost; positive
	// OutdoorBias favors time outside.
	CalmQuickBias   float64 `json:"calmQuickBias"`
	CostComfortBias float64 `json:"costComfortBias"`
	OutdoorBias     float64 `json:"outdoorBias"`

	ReplanSensitivity float64 `json:"replanSensitivity"` // [0,1]

	Trips     int       `json:"trips"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Default profile values.
const (
	defaultWalkingMin        = 5.0
	defaultWalkingMax        = 20.0
	defaultTransferTolerance = 0.5
	defaultReplanSensitivity = 0.5
)

// Divergence thresholds for the "significant divergence" check.
const (
	biasDivergenceThreshold    = 0.15
	walkingDivergenceThreshold = 5.0
)

// DefaultProfile returns a fresh profile with the fixed default values.
func DefaultProfile(userID string) Profile {
	now := time.Now()
	return Profile{
		UserID:              userID,
		WalkingToleranceMin: defaultWalkingMin,
		WalkingToleranceMax: defaultWalkingMax,
		TransferTolerance:   defaultTransferTolerance,
		ReplanSensitivity:   defaultReplanSensitivity,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// clampProfile restores every field to its declared range and repairs the
// walking-tolerance invariant. When min > max after clamping, both are
// recentered around their midpoint, two minutes apart on each side.
func clampProfile(p Profile) Profile {
	p.WalkingToleranceMin = clampRange(p.WalkingToleranceMin, 0, 60)
	p.WalkingToleranceMax = clampRange(p.WalkingToleranceMax, 5, 60)
	if p.WalkingToleranceMin > p.WalkingToleranceMax {
		mid := (p.WalkingToleranceMin + p.WalkingToleranceMax) / 2
		p.WalkingToleranceMin = clampRange(mid-2, 0, 60)
		p.WalkingToleranceMax = clampRange(mid+2, 5, 60)
	}
	p.TransferTolerance = clampRange(p.TransferTolerance, 0, 1)
	p.CalmQuickBias = clampRange(p.CalmQuickBias, -1, 1)
	p.CostComfortBias = clampRange(p.CostComfortBias, -1, 1)
	p.OutdoorBias = clampRange(p.OutdoorBias, -1, 1)
	p.ReplanSensitivity = clampRange(p.ReplanSensitivity, 0, 1)
	return p
}

// ToScoringBiases converts the profile into the same four-dimension bias
// shape the note parser emits. A default profile maps to (near) neutral 0.5
// on every dimension.
func ToScoringBiases(p Profile) travel.SoftBiases {
	return travel.SoftBiases{
		Calm:    clampRange(0.5-p.CalmQuickBias*0.35, 0, 1),
		Fast:    clampRange(0.5+p.CalmQuickBias*0.35, 0, 1),
		Comfort: clampRange(0.5+p.CostComfortBias*0.35, 0, 1),
		Cost:    clampRange(0.5-p.CostComfortBias*0.35, 0, 1),
	}
}

// SignificantDivergence reports whether the profile has drifted meaningfully
// from the defaults: any tracked bias beyond 0.15, or the max walking
// tolerance beyond 5 minutes of its default.
func SignificantDivergence(p Profile) bool {
	if absf(p.CalmQuickBias) > biasDivergenceThreshold {
		return true
	}
	if absf(p.CostComfortBias) > biasDivergenceThreshold {
		return true
	}
	if absf(p.OutdoorBias) > biasDivergenceThreshold {
		return true
	}
	return absf(p.WalkingToleranceMax-defaultWalkingMax) > walkingDivergenceThreshold
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
