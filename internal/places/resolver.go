// Package places maps free-text location strings to city codes and detects
// high-confidence disagreements with the user's selected city.
package places

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wayfinder/internal/logging"
	"wayfinder/internal/travel"
)

//go:embed cities.yaml
var citiesYAML []byte

// Resolution sources, in priority order.
const (
	SourceLookup    = "lookup"
	SourceHeuristic = "heuristic"
	SourceDefault   = "default"
)

const (
	lookupConfidence  = 0.95
	heuristicBase     = 0.5
	heuristicPerMatch = 0.1
	heuristicCeiling  = 0.85
	defaultConfidence = 0.3
)

// Resolution is the outcome of resolving one free-text place string.
type Resolution struct {
	Input      string  `json:"input"`
	CityCode   string  `json:"cityCode"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Matched    string  `json:"matched,omitempty"`
}

type landmarkEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type cityEntry struct {
	Code      string          `yaml:"code"`
	Name      string          `yaml:"name"`
	Timezone  string          `yaml:"timezone"`
	HasMetro  bool            `yaml:"hasMetro"`
	Keywords  []string        `yaml:"keywords"`
	Landmarks []landmarkEntry `yaml:"landmarks"`
}

type cityFile struct {
	Cities []cityEntry `yaml:"cities"`
}

// Resolver resolves free-text place strings against a fixed landmark table
// and per-city keyword lists. Safe for concurrent use after construction.
type Resolver struct {
	landmarks    map[string]string // normalized landmark or alias -> city code
	landmarkKeys []string          // sorted, for deterministic substring scans
	keywords     map[string][]string
	profiles     map[string]travel.CityProfile
	order        []string // city codes in data order
	logger       logging.Logger
}

// NewResolver builds a Resolver from the embedded city table.
func NewResolver(logger logging.Logger) (*Resolver, error) {
	var file cityFile
	if err := yaml.Unmarshal(citiesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse city table: %w", err)
	}
	if len(file.Cities) == 0 {
		return nil, fmt.Errorf("city table is empty")
	}

	r := &Resolver{
		landmarks: make(map[string]string),
		keywords:  make(map[string][]string),
		profiles:  make(map[string]travel.CityProfile),
		logger:    logging.OrNop(logger),
	}
	for _, city := range file.Cities {
		r.order = append(r.order, city.Code)
		r.profiles[city.Code] = travel.CityProfile{
			Code:     city.Code,
			Name:     city.Name,
			Timezone: city.Timezone,
			HasMetro: city.HasMetro,
		}
		for _, kw := range city.Keywords {
			r.keywords[city.Code] = append(r.keywords[city.Code], normalize(kw))
		}
		for _, lm := range city.Landmarks {
			r.landmarks[normalize(lm.Name)] = city.Code
			for _, alias := range lm.Aliases {
				r.landmarks[normalize(alias)] = city.Code
			}
		}
	}
	r.landmarkKeys = sortedKeys(r.landmarks)
	return r, nil
}

// CityProfile returns the static profile for a city code.
func (r *Resolver) CityProfile(code string) (travel.CityProfile, bool) {
	profile, ok := r.profiles[code]
	return profile, ok
}

// CityName returns the display name for a city code, or the code itself
// when unknown.
func (r *Resolver) CityName(code string) string {
	if profile, ok := r.profiles[code]; ok {
		return profile.Name
	}
	return code
}

// Resolve maps a free-text place string to a city code with a confidence
// score. Priority order: exact/alias landmark lookup, city keyword scan,
// then the selected city at low confidence.
func (r *Resolver) Resolve(text, selectedCity string) Resolution {
	res := Resolution{Input: text}
	norm := normalize(text)

	if norm != "" {
		// (1) exact or alias landmark match
		if code, ok := r.landmarks[norm]; ok {
			res.CityCode = code
			res.Confidence = lookupConfidence
			res.Source = SourceLookup
			res.Matched = norm
			return res
		}
		// also accept a landmark embedded in a longer string ("near central park")
		for _, landmark := range r.landmarkKeys {
			if strings.Contains(norm, landmark) {
				res.CityCode = r.landmarks[landmark]
				res.Confidence = lookupConfidence
				res.Source = SourceLookup
				res.Matched = landmark
				return res
			}
		}

		// (2) city keyword heuristic
		bestCity, bestMatches := "", 0
		for _, code := range r.order {
			matches := 0
			for _, kw := range r.keywords[code] {
				if strings.Contains(norm, kw) {
					matches++
				}
			}
			if matches > bestMatches {
				bestCity, bestMatches = code, matches
			}
		}
		if bestMatches > 0 {
			confidence := heuristicBase + heuristicPerMatch*float64(bestMatches)
			if confidence > heuristicCeiling {
				confidence = heuristicCeiling
			}
			res.CityCode = bestCity
			res.Confidence = confidence
			res.Source = SourceHeuristic
			return res
		}
	}

	// (3) fall back to the selected city
	res.CityCode = selectedCity
	res.Confidence = defaultConfidence
	res.Source = SourceDefault
	return res
}

// InferCity picks the pipeline's inferred city from the origin and
// destination resolutions: whichever has the higher confidence wins, and
// ties keep the first one encountered. This lets a single well-known
// landmark win over an ambiguous companion string.
func InferCity(resolutions ...Resolution) Resolution {
	best := Resolution{}
	for _, res := range resolutions {
		if res.CityCode == "" {
			continue
		}
		if best.CityCode == "" || res.Confidence > best.Confidence {
			best = res
		}
	}
	return best
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
