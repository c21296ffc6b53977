// Package llm defines the natural-language generation boundary. The pipeline
// treats the generation service as an optional collaborator: every call site
// has a deterministic fallback, so a missing or failing client degrades a
// response, never breaks one.
package llm

import (
	"context"
	"sync"
	"time"
)

// CallMeta is the debug introspection recorded for the most recent call.
type CallMeta struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	Latency        time.Duration `json:"latency"`
	Validated      bool          `json:"validated"`
	FallbackReason string        `json:"fallbackReason,omitempty"`
	PromptTokens   int           `json:"promptTokens"`
}

// Client is the generation service contract consumed by the decision engine
// and the depth-layer refiner.
//
// Generate fills out (a pointer to a struct carrying `validate:` tags) from
// the model's JSON output, repairing malformed JSON before giving up.
// GenerateText returns free text with no schema. IsAvailable reports whether
// the client is configured and worth calling; callers treat false the same
// way as a failed call.
type Client interface {
	Generate(ctx context.Context, prompt string, out any) error
	GenerateText(ctx context.Context, prompt string) (string, error)
	IsAvailable() bool
	LastCall() CallMeta
}

// callRecorder provides the LastCall bookkeeping shared by client
// implementations.
type callRecorder struct {
	mu   sync.Mutex
	last CallMeta
}

func (r *callRecorder) record(meta CallMeta) {
	r.mu.Lock()
	r.last = meta
	r.mu.Unlock()
}

func (r *callRecorder) LastCall() CallMeta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
