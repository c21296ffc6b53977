package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfinder/internal/jsonx"
)

type pickOutput struct {
	Choice  *int   `json:"choice" validate:"required"`
	Because string `json:"because" validate:"required"`
}

// chatStub serves an OpenAI-style chat completions envelope whose message
// content is the given string.
func chatStub(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		envelope := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		writeJSON(t, w, envelope)
	}))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	data, err := jsonx.Marshal(v)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
}

func clientFor(srv *httptest.Server) *OpenAIClient {
	return NewOpenAIClient(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "sk-test"}, nil)
}

func TestIsAvailableRequiresBaseURLAndModel(t *testing.T) {
	assert.False(t, NewOpenAIClient(Config{}, nil).IsAvailable())
	assert.False(t, NewOpenAIClient(Config{BaseURL: "http://localhost:9"}, nil).IsAvailable())
	assert.False(t, NewOpenAIClient(Config{Model: "m"}, nil).IsAvailable())
	assert.True(t, NewOpenAIClient(Config{BaseURL: "http://localhost:9", Model: "m"}, nil).IsAvailable())
}

func TestGenerateDecodesWellFormedJSON(t *testing.T) {
	srv := chatStub(t, `{"choice": 2, "because": "fewest transfers"}`)
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	require.NoError(t, c.Generate(context.Background(), "pick one", &out))
	require.NotNil(t, out.Choice)
	assert.Equal(t, 2, *out.Choice)
	assert.Equal(t, "fewest transfers", out.Because)

	meta := c.LastCall()
	assert.True(t, meta.Validated)
	assert.Equal(t, "test-model", meta.Model)
	assert.Positive(t, meta.PromptTokens)
}

func TestGenerateStripsCodeFence(t *testing.T) {
	srv := chatStub(t, "```json\n{\"choice\": 1, \"because\": \"fastest\"}\n```")
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	require.NoError(t, c.Generate(context.Background(), "pick one", &out))
	require.NotNil(t, out.Choice)
	assert.Equal(t, 1, *out.Choice)
}

func TestGenerateRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes; jsonrepair handles both.
	srv := chatStub(t, `{'choice': 0, 'because': 'only sensible pick',}`)
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	require.NoError(t, c.Generate(context.Background(), "pick one", &out))
	require.NotNil(t, out.Choice)
	assert.Equal(t, 0, *out.Choice)
	assert.Equal(t, "only sensible pick", out.Because)
}

func TestGenerateRejectsSchemaViolations(t *testing.T) {
	srv := chatStub(t, `{"because": "missing the choice field"}`)
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	err := c.Generate(context.Background(), "pick one", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
	assert.False(t, c.LastCall().Validated)
}

func TestGenerateSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	err := c.Generate(context.Background(), "pick one", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, "HTTP 503", c.LastCall().FallbackReason)
}

func TestGenerateSurfacesProviderErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": {"message": "model not found"}}`))
	}))
	defer srv.Close()
	c := clientFor(srv)

	_, err := c.GenerateText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerateTextReturnsContentVerbatim(t *testing.T) {
	srv := chatStub(t, "Leave five minutes early; the platform gets crowded.")
	defer srv.Close()
	c := clientFor(srv)

	text, err := c.GenerateText(context.Background(), "refine this")
	require.NoError(t, err)
	assert.Equal(t, "Leave five minutes early; the platform gets crowded.", text)
}

func TestCompleteSendsAuthAndJSONMode(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"choice\": 1, \"because\": \"ok\"}"}}]}`))
	}))
	defer srv.Close()
	c := clientFor(srv)

	var out pickOutput
	require.NoError(t, c.Generate(context.Background(), "pick one", &out))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Contains(t, string(gotBody), `"response_format"`)
	assert.Contains(t, string(gotBody), `"model":"test-model"`)
}

func TestGenerateWhenUnconfigured(t *testing.T) {
	c := NewOpenAIClient(Config{}, nil)
	var out pickOutput
	err := c.Generate(context.Background(), "pick one", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestMockClientScriptsResponses(t *testing.T) {
	m := NewMockClient()
	m.JSONResponse = `{"choice": 3, "because": "scripted"}`
	m.TextResponse = "scripted text"

	var out pickOutput
	require.NoError(t, m.Generate(context.Background(), "p", &out))
	assert.Equal(t, 3, *out.Choice)
	assert.Equal(t, 1, m.GenerateCalls)
	assert.Equal(t, "p", m.LastPrompt)

	text, err := m.GenerateText(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "scripted text", text)
	assert.True(t, m.LastCall().Validated)
}
