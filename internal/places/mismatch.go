package places

import "fmt"

// mismatchThreshold is the inclusive confidence bound above which a
// disagreement between the inferred and selected city is treated as real.
const mismatchThreshold = 0.8

// MismatchInput carries everything the detector needs; the check itself is a
// pure threshold rule.
type MismatchInput struct {
	SelectedCityCode string
	InferredCityCode string
	Confidence       float64
	OriginText       string
	DestinationText  string
}

// Mismatch is the detector's verdict.
type Mismatch struct {
	IsMismatch        bool   `json:"isMismatch"`
	SuggestedCityCode string `json:"suggestedCityCode,omitempty"`
	SuggestedCityName string `json:"suggestedCityName,omitempty"`
	Message           string `json:"message,omitempty"`
}

// DetectMismatch declares a mismatch iff the inference confidence meets the
// threshold (inclusive) and the inferred city differs from the selected one.
// It must run immediately after resolution; a triggered mismatch
// short-circuits all later pipeline stages.
func (r *Resolver) DetectMismatch(in MismatchInput) Mismatch {
	if in.Confidence < mismatchThreshold || in.InferredCityCode == "" || in.InferredCityCode == in.SelectedCityCode {
		return Mismatch{}
	}

	suggestedName := r.CityName(in.InferredCityCode)
	return Mismatch{
		IsMismatch:        true,
		SuggestedCityCode: in.InferredCityCode,
		SuggestedCityName: suggestedName,
		Message:           mismatchMessage(in, suggestedName),
	}
}

func mismatchMessage(in MismatchInput, suggestedName string) string {
	switch {
	case in.OriginText != "" && in.DestinationText != "":
		return fmt.Sprintf("%q and %q look like they are in %s, not your selected city. Switch to %s?",
			in.OriginText, in.DestinationText, suggestedName, suggestedName)
	case in.DestinationText != "":
		return fmt.Sprintf("%q looks like it is in %s, not your selected city. Switch to %s?",
			in.DestinationText, suggestedName, suggestedName)
	case in.OriginText != "":
		return fmt.Sprintf("%q looks like it is in %s, not your selected city. Switch to %s?",
			in.OriginText, suggestedName, suggestedName)
	default:
		return fmt.Sprintf("This trip looks like it is in %s, not your selected city. Switch to %s?",
			suggestedName, suggestedName)
	}
}
