package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// googleClient implements Client against the Generative Language API, which
// authenticates via a query-string key rather than a header and groups
// content into "parts" per turn.
type googleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	models     []string
}

// NewGoogle builds a Client for Google's Generative Language API.
func NewGoogle(apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &googleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(60 * time.Second),
		models:     []string{"gemini-1.5-flash", "gemini-1.5-pro"},
	}
}

func (c *googleClient) Name() string { return "google" }

func (c *googleClient) Supports(model string) bool {
	for _, m := range c.models {
		if m == model {
			return true
		}
	}
	return false
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type googleRequest struct {
	Contents          []googleContent         `json:"contents"`
	SystemInstruction *googleContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  googleGenerationConfig  `json:"generationConfig,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content      googleContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// googleRole maps the canonical role vocabulary to Gemini's, which calls the
// assistant turn "model" instead of "assistant".
func googleRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func (c *googleClient) ChatComplete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var system *googleContent
	contents := make([]googleContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = &googleContent{Parts: []googlePart{{Text: m.Content}}}
			continue
		}
		contents = append(contents, googleContent{Role: googleRole(m.Role), Parts: []googlePart{{Text: m.Content}}})
	}

	wire := googleRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: googleGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encoding google request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("building google request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, newTransportError("google", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, newUpstreamError("google", resp)
	}

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("decoding google response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return ChatResponse{}, &Error{Kind: KindTransient, Provider: "google", Message: "empty candidates in response"}
	}

	var content strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	return ChatResponse{
		Content:          content.String(),
		FinishReason:     out.Candidates[0].FinishReason,
		PromptTokens:     out.UsageMetadata.PromptTokenCount,
		CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
		UsageReported:    out.UsageMetadata.PromptTokenCount > 0 || out.UsageMetadata.CandidatesTokenCount > 0,
	}, nil
}
