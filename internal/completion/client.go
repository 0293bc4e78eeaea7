// Package completion provides the analysis executor: a language-model
// completion client that turns a batch of reviews into one typed analysis
// result. The orchestrator treats it as a pure function of its request.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reviewloop/insight-engine/internal/analysis"
)

// Executor runs one analysis over a review batch.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Request carries everything one analysis call needs.
type Request struct {
	Type        analysis.Type
	ProductName string
	Reviews     []analysis.Review
	// Extras holds auxiliary context, e.g. the competitor bundle for
	// smart_competition or a section restriction for competitor SWOT runs.
	Extras map[string]any
}

// Result is a successful analysis outcome. Data is the raw model JSON,
// already validated against the type's payload schema.
type Result struct {
	Data    json.RawMessage
	Payload analysis.Payload
	Model   string
	Usage   Usage
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client calls an OpenRouter-compatible chat completions API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

// Config holds completion client configuration.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // Default: https://openrouter.ai/api/v1
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// NewClient creates a new completion client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "anthropic/claude-sonnet-4"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Execute runs one analysis over the review batch and returns a typed result.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	if len(req.Reviews) == 0 {
		return nil, fmt.Errorf("no reviews to analyze")
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction(req.Type)},
			{Role: "user", Content: buildUserMessage(req)},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("completion error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("completion error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	raw := json.RawMessage(extractJSON(chatResp.Choices[0].Message.Content))
	payload, err := analysis.DecodePayload(req.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("model output did not match %s schema: %w", req.Type, err)
	}

	return &Result{
		Data:    raw,
		Payload: payload,
		Model:   chatResp.Model,
		Usage:   chatResp.Usage,
	}, nil
}

// buildUserMessage serializes the review batch plus any extras.
func buildUserMessage(req Request) string {
	var sb strings.Builder

	if req.ProductName != "" {
		fmt.Fprintf(&sb, "Product: %s\n\n", req.ProductName)
	}

	if len(req.Extras) > 0 {
		if extras, err := json.Marshal(req.Extras); err == nil {
			fmt.Fprintf(&sb, "Context:\n%s\n\n", extras)
		}
	}

	sb.WriteString("Reviews:\n")
	for _, r := range req.Reviews {
		line := reviewLine{Rating: r.Rating, Text: r.Text}
		if r.Date != nil {
			line.Date = r.Date.Format("2006-01-02")
		}
		if encoded, err := json.Marshal(line); err == nil {
			sb.Write(encoded)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

type reviewLine struct {
	Rating float64 `json:"rating"`
	Date   string  `json:"date,omitempty"`
	Text   string  `json:"text"`
}

// extractJSON strips markdown fences some models wrap JSON output in.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	return content
}

var _ Executor = (*Client)(nil)
