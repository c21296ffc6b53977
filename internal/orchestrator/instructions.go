package orchestrator

import (
	"fmt"

	"wayfinder/internal/travel"
)

// stepInstructions renders a candidate's legs as human-readable lines. A
// candidate without step detail still yields a single summary line.
func stepInstructions(c travel.RouteCandidate, destinationName string) []string {
	if len(c.Steps) == 0 {
		return []string{fmt.Sprintf("%s to %s, about %s.", modeVerb(c.Mode), destinationName, minutes(c.DurationMin))}
	}
	lines := make([]string, 0, len(c.Steps))
	for i, step := range c.Steps {
		lines = append(lines, stepLine(step, i == len(c.Steps)-1, destinationName))
	}
	return lines
}

func stepLine(s travel.Step, last bool, destinationName string) string {
	target := "the next stop"
	if last {
		target = destinationName
	}
	switch s.Type {
	case travel.StepWalk:
		if s.DistanceKm > 0 {
			return fmt.Sprintf("Walk %s (%.1f km) to %s.", minutes(s.DurationMin), s.DistanceKm, target)
		}
		return fmt.Sprintf("Walk %s to %s.", minutes(s.DurationMin), target)
	case travel.StepTransit:
		if s.Line != "" {
			return fmt.Sprintf("Take the %s for %s.", s.Line, minutes(s.DurationMin))
		}
		return fmt.Sprintf("Ride transit for %s.", minutes(s.DurationMin))
	case travel.StepDrive:
		return fmt.Sprintf("Drive %s to %s.", minutes(s.DurationMin), target)
	case travel.StepCycle:
		return fmt.Sprintf("Cycle %s to %s.", minutes(s.DurationMin), target)
	case travel.StepWait:
		return fmt.Sprintf("Wait about %s for the connection.", minutes(s.DurationMin))
	}
	return fmt.Sprintf("Continue for %s.", minutes(s.DurationMin))
}

func modeVerb(m travel.Mode) string {
	switch m {
	case travel.ModeWalking:
		return "Walk"
	case travel.ModeDriving:
		return "Drive"
	case travel.ModeBicycling:
		return "Cycle"
	default:
		return "Take transit"
	}
}

func minutes(m float64) string {
	rounded := int(m + 0.5)
	if rounded <= 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", rounded)
}

// archetype labels the winning candidate by its dominant score dimension.
// Cost never wins the label; a cheap pick reads as calm unless another
// dimension dominates.
func archetype(b travel.ScoreBreakdown) string {
	label := "calm"
	best := b.Calm
	if b.Fast > best {
		label, best = "fast", b.Fast
	}
	if b.Comfort > best {
		label = "comfort"
	}
	return label
}
