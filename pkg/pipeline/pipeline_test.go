package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/relaymesh/llmgate/pkg/cache"
	"github.com/relaymesh/llmgate/pkg/provider"
	"github.com/relaymesh/llmgate/pkg/usage"
)

func TestEstimateTokens(t *testing.T) {
	messages := []provider.Message{
		{Role: "user", Content: "12345678"},
		{Role: "assistant", Content: "1234"},
	}
	if got := estimateTokens("", messages); got <= 0 {
		t.Errorf("estimateTokens() = %d, want a positive count", got)
	}
}

func TestConcatMessages(t *testing.T) {
	messages := []provider.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "world"},
	}
	if got, want := concatMessages(messages), "hello world "; got != want {
		t.Errorf("concatMessages() = %q, want %q", got, want)
	}
}

func TestMapCacheSource(t *testing.T) {
	tests := []struct {
		in   cache.Source
		want usage.CacheSource
	}{
		{cache.SourceHot, usage.CacheSourceHot},
		{cache.SourceCold, usage.CacheSourceCold},
		{cache.SourceNone, usage.CacheSourceNone},
	}
	for _, tt := range tests {
		if got := mapCacheSource(tt.in); got != tt.want {
			t.Errorf("mapCacheSource(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyErrorTagUnwrapsClassifiedProviderError(t *testing.T) {
	final := &provider.Error{Kind: provider.KindRateLimited, Provider: "openai", StatusCode: 429, Message: "slow down"}
	err := &provider.PoolError{Attempts: []provider.Attempt{{Provider: "openai", Err: final}}, Final: final}

	if got := classifyErrorTag(err); got != string(provider.KindRateLimited) {
		t.Errorf("classifyErrorTag() = %q, want %q", got, provider.KindRateLimited)
	}
}

func TestClassifyErrorTagExhausted(t *testing.T) {
	err := &provider.PoolError{Final: provider.ErrExhausted}
	if got := classifyErrorTag(err); got != "exhausted" {
		t.Errorf("classifyErrorTag() = %q, want %q", got, "exhausted")
	}
}

func TestClassifyErrorTagUnknown(t *testing.T) {
	if got := classifyErrorTag(errors.New("boom")); got != "unknown" {
		t.Errorf("classifyErrorTag() = %q, want %q", got, "unknown")
	}
}

func TestToFingerprintMessages(t *testing.T) {
	in := []provider.Message{{Role: "user", Content: "hi"}}
	out := toFingerprintMessages(in)
	if len(out) != 1 || out[0].Role != "user" || out[0].Content != "hi" {
		t.Errorf("toFingerprintMessages() = %+v, want matching single message", out)
	}
}

func TestDecodeEnvelopeRoundTrip(t *testing.T) {
	want := provider.ChatResponse{Content: "hi there", FinishReason: "stop", PromptTokens: 5, CompletionTokens: 3}
	marshaled, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshaling response: %v", err)
	}

	got, err := decodeEnvelope(cache.Entry{Envelope: marshaled})
	if err != nil {
		t.Fatalf("decodeEnvelope() error = %v", err)
	}
	if got != want {
		t.Errorf("decodeEnvelope() = %+v, want %+v", got, want)
	}
}

func TestDecodeEnvelopeRejectsMalformedJSON(t *testing.T) {
	if _, err := decodeEnvelope(cache.Entry{Envelope: []byte("not json")}); err == nil {
		t.Error("expected error decoding malformed envelope")
	}
}
