package router

import "testing"

func TestClassifySimple(t *testing.T) {
	got := Classify(10, "Classify sentiment: I love this!")
	if got != ComplexitySimple {
		t.Fatalf("Classify() = %v, want simple", got)
	}
}

func TestClassifyComplexByTokenCount(t *testing.T) {
	got := Classify(600, "tell me about your day")
	if got != ComplexityComplex {
		t.Fatalf("Classify() = %v, want complex", got)
	}
}

func TestClassifyComplexByKeyword(t *testing.T) {
	got := Classify(50, "please analyze this dataset")
	if got != ComplexityComplex {
		t.Fatalf("Classify() = %v, want complex", got)
	}
}

func TestClassifyMediumDefault(t *testing.T) {
	got := Classify(200, "write something about cats")
	if got != ComplexityMedium {
		t.Fatalf("Classify() = %v, want medium", got)
	}
}

func TestClassifyStableAcrossCalls(t *testing.T) {
	a := Classify(50, "classify this text")
	b := Classify(50, "classify this text")
	if a != b {
		t.Fatalf("expected stable classification across repeated calls")
	}
}

func TestSelectSingleEligibleCandidateHasNoAlternatives(t *testing.T) {
	in := SelectionInput{
		Complexity:  ComplexitySimple,
		OptimizeFor: OptimizeCost,
		EnabledKinds: map[string]bool{
			"groq": true,
		},
		PromptTokens: 50,
	}

	sel, err := Select(in)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Provider != "groq" {
		t.Fatalf("expected groq to be the only eligible candidate, got %s", sel.Provider)
	}
	if len(sel.Alternatives) != 0 {
		t.Fatalf("expected no alternatives with a single eligible candidate, got %d", len(sel.Alternatives))
	}
}

func TestSelectNoCandidatesErrors(t *testing.T) {
	in := SelectionInput{
		Complexity:   ComplexitySimple,
		OptimizeFor:  OptimizeCost,
		EnabledKinds: map[string]bool{"nonexistent": true},
		PromptTokens: 10,
	}
	if _, err := Select(in); err == nil {
		t.Fatalf("expected an error when no provider is enabled")
	}
}

func TestSelectCostOptimizationPrefersCheaper(t *testing.T) {
	in := SelectionInput{
		Complexity:  ComplexityMedium,
		OptimizeFor: OptimizeCost,
		EnabledKinds: map[string]bool{
			"openai": true, "anthropic": true, "mistral": true, "groq": true, "google": true,
		},
		PromptTokens: 100,
	}
	sel, err := Select(in)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Provider == "" || sel.Model == "" {
		t.Fatalf("expected a chosen provider/model")
	}
	if len(sel.Alternatives) == 0 {
		t.Fatalf("expected alternatives when multiple providers are enabled")
	}
}
