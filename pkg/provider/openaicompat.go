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

// openAICompatClient implements Client for any provider that speaks the
// OpenAI chat-completions wire format: OpenAI itself, Mistral, and Groq all
// qualify. Only the name, base URL, supported model list, and API key differ.
type openAICompatClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	models     []string
}

func newOpenAICompatClient(name, baseURL, apiKey string, models []string) *openAICompatClient {
	return &openAICompatClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(60 * time.Second),
		models:     models,
	}
}

func (c *openAICompatClient) Name() string { return c.name }

func (c *openAICompatClient) Supports(model string) bool {
	for _, m := range c.models {
		if m == model {
			return true
		}
	}
	return false
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model            string               `json:"model"`
	Messages         []openAIChatMessage  `json:"messages"`
	Temperature      *float64             `json:"temperature,omitempty"`
	TopP             *float64             `json:"top_p,omitempty"`
	MaxTokens        *int                 `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64             `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64             `json:"presence_penalty,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *openAICompatClient) ChatComplete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	wire := openAIChatRequest{
		Model:            req.Model,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encoding %s request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("building %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, newTransportError(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, newUpstreamError(c.name, resp)
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("decoding %s response: %w", c.name, err)
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, &Error{Kind: KindTransient, Provider: c.name, Message: "empty choices in response"}
	}

	return ChatResponse{
		Content:          out.Choices[0].Message.Content,
		FinishReason:     out.Choices[0].FinishReason,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		UsageReported:    out.Usage.PromptTokens > 0 || out.Usage.CompletionTokens > 0,
	}, nil
}
