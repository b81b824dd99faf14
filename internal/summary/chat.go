package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/notely/internal/apperr"
)

// Defaults for ChatConfig.
const (
	DefaultModel       = "gpt-4.1-mini"
	DefaultMaxTokens   = 550
	DefaultTemperature = 0.7
	DefaultSentences   = "3-5"
)

// maxResponseBytes bounds how much of an upstream response is read.
const maxResponseBytes = 1 << 20

// ChatConfig configures a ChatCompletion provider.
type ChatConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Sentences   string // e.g. "3-5"
}

// ChatCompletion asks a chat-completion style HTTP endpoint for a summary.
type ChatCompletion struct {
	cfg    ChatConfig
	client *http.Client
}

// NewChatCompletion creates the provider. A nil client gets a plain
// http.Client; deadlines come from the request context.
func NewChatCompletion(cfg ChatConfig, client *http.Client) *ChatCompletion {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Sentences == "" {
		cfg.Sentences = DefaultSentences
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &ChatCompletion{cfg: cfg, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// Prompt returns the user message sent for text.
func (c *ChatCompletion) Prompt(text string) string {
	return fmt.Sprintf("Summarize this text in %s sentences. Respond ONLY with the summary:\n\n%s", c.cfg.Sentences, text)
}

func (c *ChatCompletion) Summarize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: c.Prompt(text)}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("summary: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &apperr.UpstreamError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &apperr.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &apperr.UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apperr.UpstreamError{Status: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrNoSummaryExtracted, err)
	}
	s := extractSummary(raw)
	if s == "" {
		return "", apperr.ErrNoSummaryExtracted
	}
	return s, nil
}

// extractSummary tries, in order: choices[0].message.content, summary, content.
func extractSummary(raw map[string]any) string {
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if s := trimmedString(msg["content"]); s != "" {
					return s
				}
			}
		}
	}
	if s := trimmedString(raw["summary"]); s != "" {
		return s
	}
	return trimmedString(raw["content"])
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}
