package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// anthropicClient implements Client against Anthropic's Messages API, which
// separates the system prompt from the turn list and reports usage under
// different field names than the OpenAI-compatible providers.
type anthropicClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	models     []string
}

// NewAnthropic builds a Client for Anthropic's Messages API.
func NewAnthropic(apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &anthropicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(60 * time.Second),
		models:     []string{"claude-3-haiku", "claude-3-5-sonnet"},
	}
}

func (c *anthropicClient) Name() string { return "anthropic" }

func (c *anthropicClient) Supports(model string) bool {
	for _, m := range c.models {
		if m == model {
			return true
		}
	}
	return false
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// splitSystem moves every "system" role message, wherever it appears, into
// Anthropic's separate system field (joined with newlines) and returns the
// remaining turn list.
func splitSystem(messages []Message) (string, []anthropicMessage) {
	var system strings.Builder
	turns := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content)
			continue
		}
		turns = append(turns, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return system.String(), turns
}

func (c *anthropicClient) ChatComplete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	system, turns := splitSystem(req.Messages)

	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	wire := anthropicRequest{
		Model:       req.Model,
		System:      system,
		Messages:    turns,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encoding anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("building anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, newTransportError("anthropic", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, newUpstreamError("anthropic", resp)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("decoding anthropic response: %w", err)
	}

	var content strings.Builder
	for _, block := range out.Content {
		content.WriteString(block.Text)
	}

	return ChatResponse{
		Content:          content.String(),
		FinishReason:     out.StopReason,
		PromptTokens:     out.Usage.InputTokens,
		CompletionTokens: out.Usage.OutputTokens,
		UsageReported:    out.Usage.InputTokens > 0 || out.Usage.OutputTokens > 0,
	}, nil
}
