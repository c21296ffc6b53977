package decision

import (
	"fmt"
	"strings"

	"wayfinder/internal/travel"
)

// heuristicSelect is the deterministic safety net: it re-ranks candidates
// from scratch using intent, note keywords, the blended preference sliders,
// weather, time-of-day, and the learned walking/transfer tolerances. It is
// independent of the scorer so a scoring regression cannot take the
// fallback down with it.
func heuristicSelect(candidates []travel.RouteCandidate, in Input) Selection {
	type ranked struct {
		index   int
		points  float64
		factors []string
	}

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

	note := strings.ToLower(in.Note)
	hurried := strings.Contains(note, "hurry") || strings.Contains(note, "late") || strings.Contains(note, "asap")
	wantsDry := strings.Contains(note, "dry") || strings.Contains(note, "rain")

	results := make([]ranked, 0, len(candidates))
	for i, c := range candidates {
		r := ranked{index: i}
		add := func(points float64, factor string) {
			r.points += points
			if points > 0 {
				r.factors = append(r.factors, factor)
			}
		}

		if c.DurationMin == fastest {
			add(2, "fastest option")
			if in.Biases.Fast > 0.6 || hurried {
				add(1, "speed matters for this trip")
			}
			if in.Intent == travel.IntentCommute || in.Intent == travel.IntentErrand {
				add(1, "quickest for a time-boxed trip")
			}
		}
		if c.Transfers == fewestTransfers {
			add(1, "fewest transfers")
			if in.Biases.Calm > 0.6 {
				add(1, "calmer ride")
			}
		}

		if in.Profile != nil {
			if c.WalkingMin > in.Profile.WalkingToleranceMax {
				r.points -= 2
			} else if c.WalkingMin >= in.Profile.WalkingToleranceMin {
				add(1, "walking within your usual range")
			}
			if float64(c.Transfers) > 2*in.Profile.TransferTolerance+1 {
				r.points -= 1
			}
		}

		if in.Weather != nil && !in.Weather.IsOutdoorFriendly {
			if c.Mode == travel.ModeWalking || c.IsOutdoorRoute {
				r.points -= 2
			}
			if c.Mode == travel.ModeDriving {
				add(1, "stays out of the weather")
			}
			if wantsDry && c.Mode != travel.ModeWalking && !c.IsOutdoorRoute {
				add(1, "keeps you dry")
			}
		} else if in.Weather != nil && in.Weather.IsOutdoorFriendly && c.IsOutdoorRoute && in.Intent == travel.IntentLeisure {
			add(1, "nice weather for being outside")
		}

		if in.IsNight {
			if c.UsesUnderground {
				r.points -= 1
			}
			if c.Mode == travel.ModeDriving {
				add(1, "easier late at night")
			}
		}

		if in.Biases.Cost > 0.6 && (c.Mode == travel.ModeWalking || c.Mode == travel.ModeTransit) {
			add(1, "keeps cost down")
		}
		if in.Biases.Comfort > 0.6 && c.Transfers == 0 && c.WalkingMin <= 10 {
			add(1, "low-effort door to door")
		}

		results = append(results, r)
	}

	best, second := results[0], ranked{index: -1, points: -1 << 10}
	for _, r := range results[1:] {
		if r.points > best.points {
			second = best
			best = r
		} else if r.points > second.points {
			second = r
		}
	}

	confidence := 0.55
	if second.index >= 0 {
		margin := best.points - second.points
		confidence += 0.05 * margin
	}
	if confidence > 0.85 {
		confidence = 0.85
	}
	if confidence < 0.5 {
		confidence = 0.5
	}

	factors := best.factors
	if len(factors) > 5 {
		factors = factors[:5]
	}

	selection := Selection{
		SelectedIndex: best.index,
		Reasoning:     heuristicReasoning(candidates[best.index], factors),
		Confidence:    confidence,
		KeyFactors:    factors,
	}
	if second.index >= 0 {
		selection.Tradeoff = heuristicTradeoff(candidates[best.index], candidates[second.index])
	}
	if candidates[best.index].WalkingMin > 15 {
		selection.WalkingNote = fmt.Sprintf("Expect about %.0f minutes of walking in total.", candidates[best.index].WalkingMin)
	}
	return selection
}

func heuristicReasoning(c travel.RouteCandidate, factors []string) string {
	base := fmt.Sprintf("The %s route takes about %.0f minutes", c.Mode, c.DurationMin)
	if len(factors) == 0 {
		return base + " and is the most balanced choice right now."
	}
	return fmt.Sprintf("%s and stood out because it is the %s.", base, strings.Join(factors, ", "))
}

func heuristicTradeoff(chosen, runnerUp travel.RouteCandidate) string {
	switch {
	case runnerUp.DurationMin < chosen.DurationMin:
		return fmt.Sprintf("The %s alternative is about %.0f minutes quicker but scored worse on the rest of this trip's needs.", runnerUp.Mode, chosen.DurationMin-runnerUp.DurationMin)
	case runnerUp.Transfers < chosen.Transfers:
		return fmt.Sprintf("The %s alternative has fewer transfers but takes longer overall.", runnerUp.Mode)
	default:
		return fmt.Sprintf("The %s alternative was close but didn't fit this trip quite as well.", runnerUp.Mode)
	}
}
