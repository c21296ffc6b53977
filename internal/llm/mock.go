package llm

import (
	"context"
	"fmt"

	"wayfinder/internal/jsonx"
)

// MockClient implements Client for tests. Responses are scripted: JSON
// payloads for Generate, plain strings for GenerateText.
type MockClient struct {
	callRecorder

	Available bool
	// JSON returned by Generate; unmarshalled into out as-is.
	JSONResponse string
	// Text returned by GenerateText.
	TextResponse string
	// Err, when set, is returned by both Generate and GenerateText.
	Err error

	GenerateCalls int
	TextCalls     int
	LastPrompt    string
}

// NewMockClient returns an available mock with empty responses.
func NewMockClient() *MockClient {
	return &MockClient{Available: true}
}

func (m *MockClient) IsAvailable() bool {
	return m.Available
}

func (m *MockClient) Generate(_ context.Context, prompt string, out any) error {
	m.GenerateCalls++
	m.LastPrompt = prompt
	meta := CallMeta{Provider: "mock", Model: "mock", PromptTokens: EstimateTokens(prompt)}
	if m.Err != nil {
		meta.FallbackReason = m.Err.Error()
		m.record(meta)
		return m.Err
	}
	if err := jsonx.Unmarshal([]byte(m.JSONResponse), out); err != nil {
		meta.FallbackReason = err.Error()
		m.record(meta)
		return fmt.Errorf("mock response is not valid JSON: %w", err)
	}
	meta.Validated = true
	m.record(meta)
	return nil
}

func (m *MockClient) GenerateText(_ context.Context, prompt string) (string, error) {
	m.TextCalls++
	m.LastPrompt = prompt
	meta := CallMeta{Provider: "mock", Model: "mock", PromptTokens: EstimateTokens(prompt)}
	if m.Err != nil {
		meta.FallbackReason = m.Err.Error()
		m.record(meta)
		return "", m.Err
	}
	meta.Validated = true
	m.record(meta)
	return m.TextResponse, nil
}
