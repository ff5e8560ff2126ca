package usage

import (
	"encoding/json"
	"testing"
)

func TestRoutingDecisionToJSONNil(t *testing.T) {
	var d *RoutingDecision
	raw, err := d.toJSON()
	if err != nil {
		t.Fatalf("toJSON() error = %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil JSON for a nil routing decision, got %s", raw)
	}
}

func TestRoutingDecisionToJSONRoundTrip(t *testing.T) {
	d := &RoutingDecision{
		Complexity:   "medium",
		OptimizeFor:  "cost",
		ChosenModel:  "gpt-4o-mini",
		Alternatives: []string{"mistral-small"},
	}
	raw, err := d.toJSON()
	if err != nil {
		t.Fatalf("toJSON() error = %v", err)
	}

	var got RoutingDecision
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if got != *d {
		t.Fatalf("round-tripped decision = %+v, want %+v", got, *d)
	}
}
