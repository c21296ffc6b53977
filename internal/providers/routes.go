package providers

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"wayfinder/internal/travel"
)

//go:embed routes.yaml
var routesYAML []byte

type routeFixtures struct {
	Routes []struct {
		City       string             `yaml:"city"`
		Candidates []fixtureCandidate `yaml:"candidates"`
	} `yaml:"routes"`
}

type fixtureCandidate struct {
	ID              string        `yaml:"id"`
	Mode            string        `yaml:"mode"`
	DurationMin     float64       `yaml:"durationMin"`
	WalkingMin      float64       `yaml:"walkingMin"`
	Transfers       int           `yaml:"transfers"`
	UsesUnderground bool          `yaml:"usesUnderground"`
	IsOutdoorRoute  bool          `yaml:"isOutdoorRoute"`
	CostEstimate    *float64      `yaml:"costEstimate"`
	Steps           []fixtureStep `yaml:"steps"`
}

type fixtureStep struct {
	Type        string  `yaml:"type"`
	DurationMin float64 `yaml:"durationMin"`
	DistanceKm  float64 `yaml:"distanceKm"`
	Line        string  `yaml:"line"`
}

// FixtureCandidates serves the embedded per-city route candidates. A city
// without fixtures yields an empty slice, which the pipeline treats as a
// legitimate "no routes" outcome.
type FixtureCandidates struct {
	mu     sync.RWMutex
	byCity map[string][]travel.RouteCandidate
}

// NewFixtureCandidates parses the embedded fixture data.
func NewFixtureCandidates() (*FixtureCandidates, error) {
	var fixtures routeFixtures
	if err := yaml.Unmarshal(routesYAML, &fixtures); err != nil {
		return nil, fmt.Errorf("parse route fixtures: %w", err)
	}
	byCity := make(map[string][]travel.RouteCandidate, len(fixtures.Routes))
	for _, entry := range fixtures.Routes {
		candidates := make([]travel.RouteCandidate, 0, len(entry.Candidates))
		for _, fc := range entry.Candidates {
			candidates = append(candidates, fc.toCandidate())
		}
		byCity[strings.ToLower(entry.City)] = candidates
	}
	return &FixtureCandidates{byCity: byCity}, nil
}

// SetCity overrides the candidates for one city. Tests use it to stage
// empty results and edge-case candidate sets.
func (f *FixtureCandidates) SetCity(cityCode string, candidates []travel.RouteCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCity[strings.ToLower(cityCode)] = candidates
}

func (f *FixtureCandidates) Candidates(_ context.Context, _, _, cityCode string) ([]travel.RouteCandidate, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	candidates, ok := f.byCity[strings.ToLower(cityCode)]
	if !ok {
		return []travel.RouteCandidate{}, nil
	}
	out := make([]travel.RouteCandidate, len(candidates))
	copy(out, candidates)
	return out, nil
}

func (fc fixtureCandidate) toCandidate() travel.RouteCandidate {
	steps := make([]travel.Step, 0, len(fc.Steps))
	for _, fs := range fc.Steps {
		steps = append(steps, travel.Step{
			Type:        travel.StepType(fs.Type),
			DurationMin: fs.DurationMin,
			DistanceKm:  fs.DistanceKm,
			Line:        fs.Line,
		})
	}
	return travel.RouteCandidate{
		ID:              fc.ID,
		Mode:            travel.Mode(fc.Mode),
		DurationMin:     fc.DurationMin,
		WalkingMin:      fc.WalkingMin,
		Transfers:       fc.Transfers,
		UsesUnderground: fc.UsesUnderground,
		IsOutdoorRoute:  fc.IsOutdoorRoute,
		CostEstimate:    fc.CostEstimate,
		Steps:           steps,
	}
}
