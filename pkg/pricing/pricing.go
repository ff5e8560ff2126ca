// Package pricing holds the static (provider, model) -> price table and the
// model characteristics the smart router scores candidates against.
// Both tables are process-wide, read-only after init. Changing a price
// here affects future UsageRecords only; past records keep the price that
// was current at ingestion time.
package pricing

import "fmt"

// Price is expressed in USD per 1000 tokens.
type Price struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Characteristics describes one candidate model for the smart router.
type Characteristics struct {
	Provider              string
	Model                 string
	TypicalLatencyMS      int
	QualityScore          float64 // in [0, 1]
	SuitableComplexities  map[string]bool
}

var priceTable = map[string]Price{
	"openai/gpt-3.5-turbo":       {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"openai/gpt-4o":              {InputPer1K: 0.005, OutputPer1K: 0.015},
	"openai/gpt-4o-mini":         {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"anthropic/claude-3-haiku":   {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	"anthropic/claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"mistral/mistral-small":      {InputPer1K: 0.0002, OutputPer1K: 0.0006},
	"mistral/mistral-large":      {InputPer1K: 0.002, OutputPer1K: 0.006},
	"groq/llama-3.1-8b-instant":  {InputPer1K: 0.00005, OutputPer1K: 0.00008},
	"groq/llama-3.1-70b-versatile": {InputPer1K: 0.00059, OutputPer1K: 0.00079},
	"google/gemini-1.5-flash":    {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"google/gemini-1.5-pro":      {InputPer1K: 0.00125, OutputPer1K: 0.005},
}

var characteristicsTable = []Characteristics{
	{Provider: "groq", Model: "llama-3.1-8b-instant", TypicalLatencyMS: 250, QualityScore: 0.55, SuitableComplexities: set("simple")},
	{Provider: "google", Model: "gemini-1.5-flash", TypicalLatencyMS: 400, QualityScore: 0.65, SuitableComplexities: set("simple", "medium")},
	{Provider: "openai", Model: "gpt-4o-mini", TypicalLatencyMS: 500, QualityScore: 0.7, SuitableComplexities: set("simple", "medium")},
	{Provider: "mistral", Model: "mistral-small", TypicalLatencyMS: 450, QualityScore: 0.62, SuitableComplexities: set("simple", "medium")},
	{Provider: "anthropic", Model: "claude-3-haiku", TypicalLatencyMS: 500, QualityScore: 0.68, SuitableComplexities: set("simple", "medium")},
	{Provider: "openai", Model: "gpt-3.5-turbo", TypicalLatencyMS: 600, QualityScore: 0.72, SuitableComplexities: set("simple", "medium")},
	{Provider: "groq", Model: "llama-3.1-70b-versatile", TypicalLatencyMS: 700, QualityScore: 0.78, SuitableComplexities: set("medium", "complex")},
	{Provider: "mistral", Model: "mistral-large", TypicalLatencyMS: 1200, QualityScore: 0.85, SuitableComplexities: set("medium", "complex")},
	{Provider: "google", Model: "gemini-1.5-pro", TypicalLatencyMS: 1500, QualityScore: 0.88, SuitableComplexities: set("medium", "complex")},
	{Provider: "anthropic", Model: "claude-3-5-sonnet", TypicalLatencyMS: 1800, QualityScore: 0.95, SuitableComplexities: set("complex", "medium")},
	{Provider: "openai", Model: "gpt-4o", TypicalLatencyMS: 2000, QualityScore: 0.97, SuitableComplexities: set("complex", "medium")},
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// Lookup returns the price for provider/model, or an error if unknown.
func Lookup(provider, model string) (Price, error) {
	p, ok := priceTable[provider+"/"+model]
	if !ok {
		return Price{}, fmt.Errorf("no pricing for %s/%s", provider, model)
	}
	return p, nil
}

// Cost computes the USD cost of a completed call at current prices.
func Cost(provider, model string, promptTokens, completionTokens int) (float64, error) {
	p, err := Lookup(provider, model)
	if err != nil {
		return 0, err
	}
	return float64(promptTokens)/1000*p.InputPer1K + float64(completionTokens)/1000*p.OutputPer1K, nil
}

// ExpectedCost estimates cost for scoring purposes before a call is made,
// assuming a fixed nominal completion length.
func ExpectedCost(provider, model string, promptTokens int) (float64, error) {
	const assumedCompletionTokens = 256
	return Cost(provider, model, promptTokens, assumedCompletionTokens)
}

// Candidates returns every known model's router characteristics.
func Candidates() []Characteristics {
	out := make([]Characteristics, len(characteristicsTable))
	copy(out, characteristicsTable)
	return out
}
