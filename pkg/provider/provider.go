// Package provider adapts llmgate's canonical chat-completion request to
// each upstream's wire format and classifies failures for the pipeline's
// failover decision.
package provider

import (
	"context"
	"net/http"
	"time"
)

// Message is one chat turn in the canonical request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the canonical, provider-agnostic chat-completion input.
type ChatRequest struct {
	Model            string
	Messages         []Message
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// ChatResponse is the canonical output, normalized from whatever shape the
// upstream returned.
type ChatResponse struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	// UsageReported is false when the provider didn't report token counts
	// and the caller must fall back to pkg/tokenizer estimation.
	UsageReported bool
}

// Client is implemented by every provider adapter.
type Client interface {
	// Name returns the provider identifier used in routing tables, usage
	// records, and configuration ("openai", "anthropic", ...).
	Name() string
	// ChatComplete issues one chat-completion call.
	ChatComplete(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Supports reports whether this adapter can serve the given model id.
	Supports(model string) bool
}

// sharedTransport holds the bounded per-host connection pool used by every
// adapter instance.
var sharedTransport = &http.Transport{
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// newHTTPClient returns an *http.Client backed by sharedTransport, so every
// adapter instance for one provider shares that provider's host pool.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: sharedTransport, Timeout: timeout}
}
