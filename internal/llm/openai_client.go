package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"

	"wayfinder/internal/jsonx"
	"wayfinder/internal/logging"
)

// Config holds the connection settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout_seconds"`
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	callRecorder
	config     Config
	httpClient *http.Client
	validate   *validator.Validate
	logger     logging.Logger
}

// NewOpenAIClient builds a client from config. The client reports itself
// unavailable until both a base URL and a model are configured.
func NewOpenAIClient(config Config, logger logging.Logger) *OpenAIClient {
	timeout := 60 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	return &OpenAIClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logging.OrNop(logger),
	}
}

// IsAvailable reports whether the client has enough configuration to call.
func (c *OpenAIClient) IsAvailable() bool {
	return c.config.BaseURL != "" && c.config.Model != ""
}

// GenerateText requests a plain-text completion.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, false)
}

// Generate requests a JSON completion, repairs malformed output where
// possible, unmarshals it into out, and validates the result against out's
// `validate:` tags. Any failure is an error; callers fall back.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, out any) error {
	raw, err := c.complete(ctx, prompt, true)
	if err != nil {
		return err
	}

	cleaned := stripCodeFence(raw)
	if uerr := jsonx.Unmarshal([]byte(cleaned), out); uerr != nil {
		repaired, rerr := jsonrepair.JSONRepair(cleaned)
		if rerr != nil {
			c.noteInvalid(fmt.Sprintf("unparseable JSON: %v", uerr))
			return fmt.Errorf("parse generation output: %w", uerr)
		}
		c.logger.Info("repaired malformed generation JSON")
		if uerr := jsonx.Unmarshal([]byte(repaired), out); uerr != nil {
			c.noteInvalid(fmt.Sprintf("unparseable after repair: %v", uerr))
			return fmt.Errorf("parse repaired generation output: %w", uerr)
		}
	}

	if verr := c.validate.Struct(out); verr != nil {
		c.noteInvalid(fmt.Sprintf("schema validation failed: %v", verr))
		return fmt.Errorf("generation output failed schema validation: %w", verr)
	}

	c.mu.Lock()
	c.last.Validated = true
	c.mu.Unlock()
	return nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if !c.IsAvailable() {
		return "", fmt.Errorf("generation client is not configured")
	}

	started := time.Now()
	meta := CallMeta{
		Provider:     "openai-compatible",
		Model:        c.config.Model,
		PromptTokens: EstimateTokens(prompt),
	}

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   1024,
	}
	if jsonMode {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	payload, err := jsonx.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	meta.Latency = time.Since(started)
	if err != nil {
		meta.FallbackReason = err.Error()
		c.record(meta)
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		meta.FallbackReason = err.Error()
		c.record(meta)
		return "", fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		meta.FallbackReason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		c.record(meta)
		return "", fmt.Errorf("generation endpoint returned HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := jsonx.Unmarshal(data, &parsed); err != nil {
		meta.FallbackReason = "undecodable response envelope"
		c.record(meta)
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if parsed.Error != nil {
		meta.FallbackReason = parsed.Error.Message
		c.record(meta)
		return "", fmt.Errorf("generation error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		meta.FallbackReason = "empty choices"
		c.record(meta)
		return "", fmt.Errorf("generation returned no choices")
	}

	c.record(meta)
	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) noteInvalid(reason string) {
	c.mu.Lock()
	c.last.Validated = false
	c.last.FallbackReason = reason
	c.mu.Unlock()
}

// stripCodeFence removes a surrounding markdown code fence, which some
// providers add even in JSON mode.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
