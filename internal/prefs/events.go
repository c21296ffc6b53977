package prefs

import (
	"strings"
	"time"
)

// EventType enumerates the behavioral signals the profile learns from.
type EventType string

const (
	// Choice events: which of two framings the user picked.
	EventChoseFaster  EventType = "chose_faster"
	EventChoseCalmer  EventType = "chose_calmer"
	EventChoseCheaper EventType = "chose_cheaper"
	EventChoseComfort EventType = "chose_comfort"

	EventTripCompleted  EventType = "trip_completed"
	EventRouteOverride  EventType = "route_override"
	EventNoteAdded      EventType = "note_added"
	EventReplanRequest  EventType = "replan_requested"
	EventReplanDeclined EventType = "replan_declined"

	// EventSessionPing carries no preference signal; applying it only
	// refreshes UpdatedAt.
	EventSessionPing EventType = "session_ping"
)

// KnownEventType reports whether t is one of the declared event types.
func KnownEventType(t EventType) bool {
	switch t {
	case EventChoseFaster, EventChoseCalmer, EventChoseCheaper, EventChoseComfort,
		EventTripCompleted, EventRouteOverride, EventNoteAdded,
		EventReplanRequest, EventReplanDeclined, EventSessionPing:
		return true
	}
	return false
}

// EventPayload is the optional structured payload attached to an event.
type EventPayload struct {
	FromMode  string  `json:"fromMode,omitempty"`
	ToMode    string  `json:"toMode,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Note      string  `json:"note,omitempty"`
	WalkedMin float64 `json:"walkedMin,omitempty"`
}

// Event is an immutable behavioral fact. The event log is append-only;
// ordering matters for "recent N" windows and for delta/clamp interaction.
type Event struct {
	ID      string       `json:"id"`
	UserID  string       `json:"userId"`
	Type    EventType    `json:"type"`
	Payload EventPayload `json:"payload,omitempty"`
	At      time.Time    `json:"at"`
}

// ApplyEvent is a pure function (profile, event) -> profile'. Every mutation
// is followed by a global clamp pass so no sequence of events can leave the
// profile outside its declared ranges.
func ApplyEvent(p Profile, e Event) Profile {
	switch e.Type {
	case EventChoseFaster:
		p.CalmQuickBias += 0.05
	case EventChoseCalmer:
		p.CalmQuickBias -= 0.05
	case EventChoseCheaper:
		p.CostComfortBias -= 0.05
	case EventChoseComfort:
		p.CostComfortBias += 0.05
	case EventTripCompleted:
		p.Trips++
		// Walking beyond the current tolerance that still completed fine
		// stretches the window slightly.
		if e.Payload.WalkedMin > p.WalkingToleranceMax {
			p.WalkingToleranceMax += 1
		}
	case EventRouteOverride:
		p = applyRouteOverride(p, e.Payload)
	case EventNoteAdded:
		p = applyNoteSignals(p, e.Payload.Note)
	case EventReplanRequest:
		p.ReplanSensitivity += 0.05
	case EventReplanDeclined:
		p.ReplanSensitivity -= 0.05
	case EventSessionPing:
		// no preference signal
	}

	p = clampProfile(p)
	p.UpdatedAt = eventTime(e)
	return p
}

// ApplyEvents folds events through ApplyEvent in order. Order affects the
// final profile when deltas interact with clamping, so callers must pass
// events chronologically.
func ApplyEvents(p Profile, events []Event) Profile {
	for _, e := range events {
		p = ApplyEvent(p, e)
	}
	return p
}

// applyRouteOverride inspects the override's mode change and free-text
// reason. Switching to walking reads as an outdoor/walking preference;
// switching to driving as a comfort preference.
func applyRouteOverride(p Profile, payload EventPayload) Profile {
	switch payload.ToMode {
	case "walking":
		p.OutdoorBias += 0.08
		p.WalkingToleranceMax += 2
	case "driving":
		p.CostComfortBias += 0.08
	case "transit":
		if payload.FromMode == "walking" {
			p.WalkingToleranceMax -= 1
		}
	}

	reason := strings.ToLower(payload.Reason)
	if containsAny(reason, "faster", "quicker", "save time", "late") {
		p.CalmQuickBias += 0.05
	}
	if containsAny(reason, "tired", "too far", "too much walking") {
		p.WalkingToleranceMax -= 2
	}
	if containsAny(reason, "expensive", "cost", "cheaper") {
		p.CostComfortBias -= 0.05
	}
	return p
}

// noteBuckets are the five semantic keyword buckets scanned by the
// note-added handler; each nudges different fields.
var noteBuckets = []struct {
	name     string
	keywords []string
	apply    func(p *Profile)
}{
	{
		name:     "urgency",
		keywords: []string{"hurry", "late", "asap", "urgent", "quick"},
		apply:    func(p *Profile) { p.CalmQuickBias += 0.04 },
	},
	{
		name:     "comfort",
		keywords: []string{"comfortable", "relax", "easy", "chill", "no stress"},
		apply:    func(p *Profile) { p.CostComfortBias += 0.04 },
	},
	{
		name:     "fatigue",
		keywords: []string{"tired", "exhausted", "feet hurt", "worn out"},
		apply: func(p *Profile) {
			p.WalkingToleranceMax -= 1
			p.TransferTolerance -= 0.02
		},
	},
	{
		name:     "budget",
		keywords: []string{"cheap", "budget", "save money", "broke"},
		apply:    func(p *Profile) { p.CostComfortBias -= 0.04 },
	},
	{
		name:     "exploration",
		keywords: []string{"explore", "scenic", "wander", "outdoors", "fresh air"},
		apply: func(p *Profile) {
			p.OutdoorBias += 0.05
			p.WalkingToleranceMax += 1
		},
	},
}

func applyNoteSignals(p Profile, note string) Profile {
	text := strings.ToLower(note)
	if text == "" {
		return p
	}
	for _, bucket := range noteBuckets {
		if containsAny(text, bucket.keywords...) {
			bucket.apply(&p)
		}
	}
	return p
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func eventTime(e Event) time.Time {
	if !e.At.IsZero() {
		return e.At
	}
	return time.Now()
}
