package router

import (
	"fmt"
	"sort"

	"github.com/relaymesh/llmgate/pkg/pricing"
)

// OptimizeFor is the objective used to score candidates.
type OptimizeFor string

const (
	OptimizeCost    OptimizeFor = "cost"
	OptimizeLatency OptimizeFor = "latency"
	OptimizeQuality OptimizeFor = "quality"
)

// SelectionInput carries everything step 2 needs to pick a model.
type SelectionInput struct {
	Complexity     Complexity
	OptimizeFor    OptimizeFor
	MaxLatencyMS   int // 0 means absent
	EnabledKinds   map[string]bool
	PromptTokens   int
}

// Alternative is one candidate that was considered but not chosen.
type Alternative struct {
	Provider       string
	Model          string
	ReasonRejected string
}

// Selection is the router's decision for one request.
type Selection struct {
	Provider     string
	Model        string
	Rationale    string
	Alternatives []Alternative
}

type scoredCandidate struct {
	c            pricing.Characteristics
	expectedCost float64
	score        float64
}

// Select runs the filter -> relax -> score -> tie-break pipeline described
// by the smart router's model selection step.
func Select(in SelectionInput) (Selection, error) {
	all := pricing.Candidates()

	filtered := filter(all, in, true, true)
	relaxedLatency := false
	relaxedSuitability := false

	if len(filtered) == 0 {
		filtered = filter(all, in, false, true)
		relaxedLatency = true
	}
	if len(filtered) == 0 {
		filtered = filter(all, in, false, false)
		relaxedSuitability = true
	}
	if len(filtered) == 0 {
		return Selection{}, fmt.Errorf("no candidate model available for complexity %q among enabled providers", in.Complexity)
	}

	scored := make([]scoredCandidate, 0, len(filtered))
	for _, c := range filtered {
		cost, err := pricing.ExpectedCost(c.Provider, c.Model, in.PromptTokens)
		if err != nil {
			continue
		}
		scored = append(scored, scoredCandidate{c: c, expectedCost: cost, score: score(c, cost, in.OptimizeFor)})
	}
	if len(scored) == 0 {
		return Selection{}, fmt.Errorf("no priced candidate model available for complexity %q", in.Complexity)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].c.QualityScore != scored[j].c.QualityScore {
			return scored[i].c.QualityScore > scored[j].c.QualityScore
		}
		if scored[i].expectedCost != scored[j].expectedCost {
			return scored[i].expectedCost < scored[j].expectedCost
		}
		return scored[i].c.Model < scored[j].c.Model
	})

	chosen := scored[0]

	alternatives := make([]Alternative, 0, 3)
	for _, sc := range scored[1:] {
		if len(alternatives) == 3 {
			break
		}
		alternatives = append(alternatives, Alternative{
			Provider:       sc.c.Provider,
			Model:          sc.c.Model,
			ReasonRejected: rejectionReason(chosen, sc, in.OptimizeFor),
		})
	}

	rationale := fmt.Sprintf("selected %s/%s to optimize for %s at complexity %s",
		chosen.c.Provider, chosen.c.Model, in.OptimizeFor, in.Complexity)
	if relaxedLatency {
		rationale += " (latency constraint relaxed)"
	}
	if relaxedSuitability {
		rationale += " (complexity suitability relaxed)"
	}

	return Selection{
		Provider:     chosen.c.Provider,
		Model:        chosen.c.Model,
		Rationale:    rationale,
		Alternatives: alternatives,
	}, nil
}

func filter(all []pricing.Characteristics, in SelectionInput, enforceLatency, enforceSuitability bool) []pricing.Characteristics {
	var out []pricing.Characteristics
	for _, c := range all {
		if in.EnabledKinds != nil && !in.EnabledKinds[c.Provider] {
			continue
		}
		if enforceSuitability && !c.SuitableComplexities[string(in.Complexity)] {
			continue
		}
		if enforceLatency && in.MaxLatencyMS > 0 && c.TypicalLatencyMS > in.MaxLatencyMS {
			continue
		}
		out = append(out, c)
	}
	return out
}

func score(c pricing.Characteristics, expectedCost float64, optimizeFor OptimizeFor) float64 {
	switch optimizeFor {
	case OptimizeCost:
		return -expectedCost
	case OptimizeLatency:
		return -float64(c.TypicalLatencyMS)
	default:
		return c.QualityScore
	}
}

func rejectionReason(chosen, candidate scoredCandidate, optimizeFor OptimizeFor) string {
	switch optimizeFor {
	case OptimizeCost:
		return fmt.Sprintf("higher expected cost ($%.5f vs $%.5f)", candidate.expectedCost, chosen.expectedCost)
	case OptimizeLatency:
		return fmt.Sprintf("higher typical latency (%dms vs %dms)", candidate.c.TypicalLatencyMS, chosen.c.TypicalLatencyMS)
	default:
		return fmt.Sprintf("lower quality score (%.2f vs %.2f)", candidate.c.QualityScore, chosen.c.QualityScore)
	}
}
