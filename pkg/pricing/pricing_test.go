package pricing

import "testing"

func TestCostComputation(t *testing.T) {
	cost, err := Cost("openai", "gpt-3.5-turbo", 1000, 1000)
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	want := 0.0005 + 0.0015
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Cost() = %v, want %v", cost, want)
	}
}

func TestCostUnknownModel(t *testing.T) {
	if _, err := Cost("openai", "does-not-exist", 10, 10); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestCandidatesNonEmpty(t *testing.T) {
	c := Candidates()
	if len(c) == 0 {
		t.Fatalf("expected a non-empty candidate table")
	}
}

func TestCandidatesIsACopy(t *testing.T) {
	c1 := Candidates()
	c1[0].Model = "mutated"
	c2 := Candidates()
	if c2[0].Model == "mutated" {
		t.Fatalf("Candidates() must return an independent copy")
	}
}
