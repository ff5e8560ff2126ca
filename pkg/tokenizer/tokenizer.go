// Package tokenizer estimates prompt token counts for providers that don't
// report usage in their response, using a tokenizer matched to the model
// family where one is known and falling back to a coarse estimate otherwise.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Message is the minimal shape needed to estimate a chat prompt's size.
type Message struct {
	Role    string
	Content string
}

var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

var (
	mu    sync.Mutex
	cache = map[string]*tiktoken.Tiktoken{}
)

// encodingFor returns the tiktoken encoding for an OpenAI-family model,
// prefix-matching against known model families and defaulting to
// cl100k_base for anything unrecognised. Anthropic, Mistral, Groq, and
// Google models are all approximated with the same BPE, which is accurate
// enough for cache-key-independent cost estimation but not for exact
// provider-side accounting.
func encodingFor(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	for prefix, enc := range modelEncodings {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return enc
		}
	}
	return "cl100k_base"
}

func getEncoder(encoding string) (*tiktoken.Tiktoken, error) {
	mu.Lock()
	defer mu.Unlock()

	if enc, ok := cache[encoding]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %s: %w", encoding, err)
	}
	cache[encoding] = enc
	return enc, nil
}

// CountPromptTokens estimates the token count of a full chat prompt,
// including the per-message role/delimiter overhead tiktoken's chat format
// adds on top of raw content tokens.
func CountPromptTokens(model string, messages []Message) (int, error) {
	enc, err := getEncoder(encodingFor(model))
	if err != nil {
		return 0, err
	}

	total := 0
	for _, m := range messages {
		total += 4 // per-message <|start|>role\ncontent<|end|>\n overhead
		total += len(enc.Encode(m.Content, nil, nil))
		total += len(enc.Encode(m.Role, nil, nil))
	}
	total += 3 // conversation priming overhead
	return total, nil
}

// CountText estimates the token count of a single string.
func CountText(model, text string) (int, error) {
	enc, err := getEncoder(encodingFor(model))
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
