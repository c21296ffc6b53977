package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"wayfinder/internal/llm"
	"wayfinder/internal/logging"
	"wayfinder/internal/travel"
)

// depthLayer builds the narrative bundle for a plan. The deterministic base
// is always produced; when a generation client is available it may refine
// the framing line, and any failure there leaves the base untouched.
func depthLayer(ctx context.Context, client llm.Client, logger logging.Logger, plan *Plan, req Request, weather *travel.Weather, isNight bool) DepthLayer {
	layer := DepthLayer{
		Presence:       presenceLine(plan, isNight),
		Framing:        framingLine(plan, req),
		Insights:       insightLines(plan, weather),
		Responsibility: "Conditions change; check your route before you leave.",
	}

	if client == nil || !client.IsAvailable() {
		return layer
	}
	prompt := refinePrompt(layer.Framing, plan, req)
	refined, err := client.GenerateText(ctx, prompt)
	if err != nil {
		logging.OrNop(logger).Debug("depth layer refinement skipped: %v", err)
		return layer
	}
	refined = strings.TrimSpace(refined)
	if refined == "" || len(refined) > 300 {
		return layer
	}
	layer.Framing = refined
	layer.Refined = true
	return layer
}

func presenceLine(plan *Plan, isNight bool) string {
	when := "Right now"
	if isNight {
		when = "Tonight"
	}
	return fmt.Sprintf("%s, the %s option is the one to take.", when, plan.Archetype)
}

func framingLine(plan *Plan, req Request) string {
	intent := string(req.Intent)
	if !travel.KnownIntent(req.Intent) {
		intent = "trip"
	}
	return fmt.Sprintf("For this %s, %s gets you to %s in about %s.",
		intent, describeMode(plan.Mode), req.Destination, minutes(plan.DurationMin))
}

func insightLines(plan *Plan, weather *travel.Weather) []string {
	var insights []string
	if plan.WalkingNote != "" {
		insights = append(insights, plan.WalkingNote)
	}
	if weather != nil && !weather.IsOutdoorFriendly {
		insights = append(insights, fmt.Sprintf("Weather is %s, so time outside is kept short.", weather.Condition))
	}
	if plan.MemoryCallback != "" {
		insights = append(insights, plan.MemoryCallback)
	}
	return insights
}

func describeMode(m travel.Mode) string {
	switch m {
	case travel.ModeWalking:
		return "walking"
	case travel.ModeDriving:
		return "a car"
	case travel.ModeBicycling:
		return "a bike"
	default:
		return "transit"
	}
}

func refinePrompt(base string, plan *Plan, req Request) string {
	var b strings.Builder
	b.WriteString("Rewrite this one-line route framing to be warmer without adding any facts.\n")
	b.WriteString("Keep it under 30 words. Do not mention scores, candidates, or indexes.\n\n")
	fmt.Fprintf(&b, "Line: %s\n", base)
	fmt.Fprintf(&b, "Mode: %s. Duration: about %s. Destination: %s.\n", plan.Mode, minutes(plan.DurationMin), req.Destination)
	return b.String()
}
