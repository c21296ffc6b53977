package prefs

import "fmt"

// Confidence tuning constants.
const (
	confidenceBase     = 0.2
	confidencePerTrip  = 0.03
	confidenceBaseCap  = 0.8
	confidenceCap      = 0.95
	strongAgreement    = 0.75
	weakAgreement      = 0.60
	strongBoost        = 0.15
	weakBoost          = 0.08
	minChoiceEvents    = 3
	callbackMinTrips   = 5
	callbackMinConf    = 0.6
	callbackShowChance = 0.2
)

// Confidence estimates how much the learned profile can be trusted. The base
// grows with completed trips and caps at 0.8; consistent recent choices add
// a boost: +0.15 when at least three recent choice events agree at 75% or
// more on one direction, +0.08 at 60%.
func Confidence(trips int, recent []Event) float64 {
	confidence := confidenceBase + float64(trips)*confidencePerTrip
	if confidence > confidenceBaseCap {
		confidence = confidenceBaseCap
	}

	counts := map[EventType]int{}
	total := 0
	for _, e := range recent {
		switch e.Type {
		case EventChoseFaster, EventChoseCalmer, EventChoseCheaper, EventChoseComfort:
			counts[e.Type]++
			total++
		}
	}
	if total >= minChoiceEvents {
		top := 0
		for _, n := range counts {
			if n > top {
				top = n
			}
		}
		agreement := float64(top) / float64(total)
		switch {
		case agreement >= strongAgreement:
			confidence += strongBoost
		case agreement >= weakAgreement:
			confidence += weakBoost
		}
	}

	if confidence > confidenceCap {
		confidence = confidenceCap
	}
	return confidence
}

// CallbackInsight produces the one-line "memory callback" shown with a plan.
// It is deliberately throttled: the profile needs at least five trips,
// confidence at or above 0.6, significant divergence from defaults, and a
// further ~20% random draw. The draw is a UX throttle, not a correctness
// gate; rand is injected so tests can force either outcome.
func CallbackInsight(p Profile, recent []Event, rand func() float64) (string, bool) {
	if p.Trips < callbackMinTrips {
		return "", false
	}
	if Confidence(p.Trips, recent) < callbackMinConf {
		return "", false
	}
	if !SignificantDivergence(p) {
		return "", false
	}
	if rand == nil || rand() >= callbackShowChance {
		return "", false
	}
	return insightLine(p), true
}

func insightLine(p Profile) string {
	switch {
	case p.CalmQuickBias > biasDivergenceThreshold:
		return fmt.Sprintf("You've picked the faster option on recent trips (%d so far), so speed is weighted up for you.", p.Trips)
	case p.CalmQuickBias < -biasDivergenceThreshold:
		return fmt.Sprintf("Across %d trips you've leaned toward calmer routes, so this pick favors low stress.", p.Trips)
	case p.CostComfortBias > biasDivergenceThreshold:
		return "You usually trade a little money for comfort, and this route reflects that."
	case p.CostComfortBias < -biasDivergenceThreshold:
		return "You tend to pick the cheaper way, so cost counts extra here."
	case p.OutdoorBias > biasDivergenceThreshold:
		return "You like being outside when there's a choice, so outdoor time scored higher."
	case absf(p.WalkingToleranceMax-defaultWalkingMax) > walkingDivergenceThreshold:
		return fmt.Sprintf("Your comfortable walking range has settled around %.0f minutes; routes are filtered accordingly.", p.WalkingToleranceMax)
	default:
		return "Your preferences have drifted from the defaults; recent picks shaped this recommendation."
	}
}
