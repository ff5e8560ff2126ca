// Package router implements the smart routing decision: complexity
// classification over the prompt, then model selection against the static
// pricing/characteristics table.
package router

import "strings"

// Complexity is the outcome of step 1's classification.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

var simpleKeywords = []string{
	"classify", "extract", "parse", "format", "yes/no", "true/false", "sentiment",
}

var complexKeywords = []string{
	"analyze", "explain step-by-step", "reasoning", "derive", "essay", "creative", "detailed",
}

// Classify assigns a complexity class from the total prompt token count and
// the concatenated, lower-cased message text. Classification is a pure
// function of (tokenCount, text) and is therefore stable across repeated
// calls with the same input.
func Classify(tokenCount int, concatenatedText string) Complexity {
	lower := strings.ToLower(concatenatedText)

	if tokenCount < 100 && containsAny(lower, simpleKeywords) {
		return ComplexitySimple
	}
	if tokenCount > 500 || containsAny(lower, complexKeywords) {
		return ComplexityComplex
	}
	return ComplexityMedium
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
