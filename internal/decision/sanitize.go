package decision

import (
	"regexp"
	"strings"

	"wayfinder/internal/travel"
)

// internalLabelPattern matches leaked internal identifiers like
// "candidate 2", "candidate_0", or "score: 87.5".
var internalLabelPattern = regexp.MustCompile(`(?i)\bcandidate[ _#]?\d+\b|\bscore[:=]\s*\d+(\.\d+)?\b|\bindex\s+\d+\b`)

// forbiddenPhrases are stylistic tells that must never reach the user.
var forbiddenPhrases = []string{
	"as an ai",
	"as a language model",
	"based on the data provided",
	"i cannot",
	"i am unable",
	"according to my analysis",
}

// modeVocabulary maps words the model might use to the candidate mode they
// imply. A sentence naming a mode absent from the candidate set is treated
// as hallucinated and dropped.
var modeVocabulary = map[string]travel.Mode{
	"driving": travel.ModeDriving,
	"drive":   travel.ModeDriving,
	"car":     travel.ModeDriving,
	"taxi":    travel.ModeDriving,
	"cycling": travel.ModeBicycling,
	"bike":    travel.ModeBicycling,
	"bicycle": travel.ModeBicycling,
	"subway":  travel.ModeTransit,
	"metro":   travel.ModeTransit,
	"train":   travel.ModeTransit,
	"bus":     travel.ModeTransit,
	"transit": travel.ModeTransit,
	"ferry":   travel.Mode("ferry"),
	"scooter": travel.Mode("scooter"),
}

// sanitizeText post-processes generated copy: internal labels are rewritten
// to neutral wording, sentences with forbidden phrases or references to
// modes not actually on offer are removed entirely.
func sanitizeText(text string, modes map[travel.Mode]bool) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = internalLabelPattern.ReplaceAllString(text, "this option")

	sentences := splitSentences(text)
	kept := sentences[:0]
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		if containsForbidden(lower) {
			continue
		}
		if mentionsAbsentMode(lower, modes) {
			continue
		}
		kept = append(kept, sentence)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func sanitizeList(items []string, modes map[travel.Mode]bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if cleaned := sanitizeText(item, modes); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func containsForbidden(lower string) bool {
	for _, phrase := range forbiddenPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func mentionsAbsentMode(lower string, modes map[travel.Mode]bool) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, word := range words {
		if mode, ok := modeVocabulary[word]; ok && !modes[mode] {
			// walking exists in nearly every candidate as a leg, so only
			// whole-route modes are policed.
			return true
		}
	}
	return false
}

var sentenceSplitPattern = regexp.MustCompile(`(?s)[^.!?]+[.!?]?`)

func splitSentences(text string) []string {
	matches := sentenceSplitPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
