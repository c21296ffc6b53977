// Package decision selects the final route from scored candidates. The
// selection is LLM-assisted when a generation client is available, with a
// deterministic heuristic ranker always ready underneath; both paths produce
// the identical output shape so callers cannot tell which ran except via the
// UsedLLM flag.
package decision

import (
	"context"
	"fmt"
	"strings"

	"wayfinder/internal/llm"
	"wayfinder/internal/logging"
	"wayfinder/internal/prefs"
	"wayfinder/internal/travel"
)

// Input is the request context the selector considers beyond the candidates
// themselves.
type Input struct {
	Intent  travel.TripIntent
	Note    string
	Biases  travel.SoftBiases
	Weather *travel.Weather
	IsNight bool
	Profile *prefs.Profile
}

// Selection is the selector's output, identical for both paths.
type Selection struct {
	SelectedIndex   int      `json:"selectedIndex"`
	Reasoning       string   `json:"reasoning"`
	Confidence      float64  `json:"confidence"`
	KeyFactors      []string `json:"keyFactors,omitempty"`
	Tradeoff        string   `json:"tradeoff,omitempty"`
	AlternativeNote string   `json:"alternativeNote,omitempty"`
	WalkingNote     string   `json:"walkingNote,omitempty"`
	UsedLLM         bool     `json:"usedLLM"`
}

// Engine is the route selector.
type Engine struct {
	client llm.Client
	logger logging.Logger
}

// NewEngine builds an Engine. client may be nil; the heuristic path then
// always runs.
func NewEngine(client llm.Client, logger logging.Logger) *Engine {
	return &Engine{client: client, logger: logging.OrNop(logger)}
}

// Select picks one candidate. A single candidate is selected trivially with
// maximum confidence. Otherwise the engine attempts a schema-validated
// natural-language decision and falls back to the deterministic heuristic on
// unavailability, validation failure, or any error.
func (e *Engine) Select(ctx context.Context, candidates []travel.RouteCandidate, scored []travel.ScoredCandidate, in Input) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("no candidates to select from")
	}
	if len(candidates) == 1 {
		return Selection{
			SelectedIndex: 0,
			Reasoning:     "This is the only available route for this trip.",
			Confidence:    1.0,
			KeyFactors:    []string{"only option"},
		}, nil
	}

	if e.client != nil && e.client.IsAvailable() {
		if selection, err := e.selectWithLLM(ctx, candidates, scored, in); err == nil {
			return selection, nil
		} else {
			e.logger.Info("generation-backed selection failed, using heuristic: %v", err)
		}
	}

	return heuristicSelect(candidates, in), nil
}

// llmDecision is the strict output schema required from the generation
// service.
type llmDecision struct {
	SelectedIndex   *int     `json:"selectedIndex" validate:"required"`
	Reasoning       string   `json:"reasoning" validate:"required"`
	Confidence      float64  `json:"confidence" validate:"gte=0,lte=1"`
	KeyFactors      []string `json:"keyFactors" validate:"omitempty,max=5"`
	Tradeoff        string   `json:"tradeoff"`
	AlternativeNote string   `json:"alternativeNote"`
	WalkingNote     string   `json:"walkingNote"`
}

func (e *Engine) selectWithLLM(ctx context.Context, candidates []travel.RouteCandidate, scored []travel.ScoredCandidate, in Input) (Selection, error) {
	summaries := summarize(candidates, in)
	prompt := buildPrompt(summaries, in)

	var decision llmDecision
	if err := e.client.Generate(ctx, prompt, &decision); err != nil {
		return Selection{}, err
	}
	if decision.SelectedIndex == nil || *decision.SelectedIndex < 0 || *decision.SelectedIndex >= len(candidates) {
		return Selection{}, fmt.Errorf("selected index out of range")
	}

	modes := presentModes(candidates)
	selection := Selection{
		SelectedIndex:   *decision.SelectedIndex,
		Reasoning:       sanitizeText(decision.Reasoning, modes),
		Confidence:      decision.Confidence,
		KeyFactors:      sanitizeList(decision.KeyFactors, modes),
		Tradeoff:        sanitizeText(decision.Tradeoff, modes),
		AlternativeNote: sanitizeText(decision.AlternativeNote, modes),
		WalkingNote:     sanitizeText(decision.WalkingNote, modes),
		UsedLLM:         true,
	}
	if strings.TrimSpace(selection.Reasoning) == "" {
		return Selection{}, fmt.Errorf("reasoning was stripped empty by sanitization")
	}
	return selection, nil
}

// candidateSummary is the structured view of one candidate handed to the
// generation service. Only facts derived from the candidate metrics appear
// here; the sanitizer later rejects text that strays outside them.
type candidateSummary struct {
	Index         int      `json:"index"`
	Mode          string   `json:"mode"`
	DurationMin   float64  `json:"durationMin"`
	WalkingMin    float64  `json:"walkingMin"`
	Transfers     int      `json:"transfers"`
	Advantages    []string `json:"advantages,omitempty"`
	Disadvantages []string `json:"disadvantages,omitempty"`
	StressSignals []string `json:"stressSignals,omitempty"`
}

func summarize(candidates []travel.RouteCandidate, in Input) []candidateSummary {
	fastest := candidates[0].DurationMin
	fewestTransfers := candidates[0].Transfers
	for _, c := range candidates[1:] {
		if c.DurationMin < fastest {
			fastest = c.DurationMin
		}
		if c.Transfers < fewestTransfers {
			fewestTransfers = c.Transfers
		}
	}

	summaries := make([]candidateSummary, 0, len(candidates))
	for i, c := range candidates {
		s := candidateSummary{
			Index:       i,
			Mode:        string(c.Mode),
			DurationMin: c.DurationMin,
			WalkingMin:  c.WalkingMin,
			Transfers:   c.Transfers,
		}
		if c.DurationMin == fastest {
			s.Advantages = append(s.Advantages, "fastest option")
		}
		if c.Transfers == 0 {
			s.Advantages = append(s.Advantages, "no transfers")
		} else if c.Transfers == fewestTransfers {
			s.Advantages = append(s.Advantages, "fewest transfers")
		}
		if c.WalkingMin <= 5 {
			s.Advantages = append(s.Advantages, "very little walking")
		}
		if c.Mode == travel.ModeWalking {
			s.Advantages = append(s.Advantages, "free")
		}
		if c.DurationMin >= fastest*1.3 && c.DurationMin > fastest {
			s.Disadvantages = append(s.Disadvantages, "notably slower than the fastest option")
		}
		if c.WalkingMin > 20 {
			s.Disadvantages = append(s.Disadvantages, "a lot of walking")
		}
		if c.Transfers >= 2 {
			s.StressSignals = append(s.StressSignals, "frequent transfers")
		}
		if c.UsesUnderground && in.IsNight {
			s.StressSignals = append(s.StressSignals, "underground late at night")
		}
		if in.Weather != nil && !in.Weather.IsOutdoorFriendly && (c.Mode == travel.ModeWalking || c.IsOutdoorRoute) {
			s.StressSignals = append(s.StressSignals, "exposed to poor weather")
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func buildPrompt(summaries []candidateSummary, in Input) string {
	var b strings.Builder
	b.WriteString("You pick the single best travel route for a user.\n")
	fmt.Fprintf(&b, "Trip intent: %s.\n", in.Intent)
	if strings.TrimSpace(in.Note) != "" {
		fmt.Fprintf(&b, "User note: %q.\n", in.Note)
	}
	if in.Weather != nil {
		fmt.Fprintf(&b, "Weather: %s, %.0f°C, outdoor-friendly=%t.\n", in.Weather.Condition, in.Weather.TemperatureC, in.Weather.IsOutdoorFriendly)
	}
	if in.IsNight {
		b.WriteString("It is currently night.\n")
	}
	b.WriteString("Candidates:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "- index %d: mode=%s duration=%.0fmin walking=%.0fmin transfers=%d", s.Index, s.Mode, s.DurationMin, s.WalkingMin, s.Transfers)
		if len(s.Advantages) > 0 {
			fmt.Fprintf(&b, " advantages=%s", strings.Join(s.Advantages, "; "))
		}
		if len(s.Disadvantages) > 0 {
			fmt.Fprintf(&b, " disadvantages=%s", strings.Join(s.Disadvantages, "; "))
		}
		if len(s.StressSignals) > 0 {
			fmt.Fprintf(&b, " stress=%s", strings.Join(s.StressSignals, "; "))
		}
		b.WriteString("\n")
	}
	b.WriteString(`Respond with JSON only: {"selectedIndex": int, "reasoning": string, "confidence": number 0..1, "keyFactors": [up to 5 strings], "tradeoff": string optional, "alternativeNote": string optional, "walkingNote": string optional}. `)
	b.WriteString("Mention only facts present in the candidate data above.\n")
	return b.String()
}

func presentModes(candidates []travel.RouteCandidate) map[travel.Mode]bool {
	modes := make(map[travel.Mode]bool, len(candidates))
	for _, c := range candidates {
		modes[c.Mode] = true
	}
	return modes
}
