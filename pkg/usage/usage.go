// Package usage persists per-request usage records and exposes the windowed
// aggregates the alert evaluator and analytics read models consume.
package usage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CacheSource records where a response came from for one usage record.
type CacheSource string

const (
	CacheSourceNone CacheSource = "none"
	CacheSourceHot  CacheSource = "hot"
	CacheSourceCold CacheSource = "cold"
)

// RoutingDecision is the optional smart-router decision attached to a
// record for auditability, mirroring router.Selection.
type RoutingDecision struct {
	Complexity   string   `json:"complexity"`
	OptimizeFor  string   `json:"optimize_for"`
	ChosenModel  string   `json:"chosen_model"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// Record is one immutable, append-only usage log entry.
type Record struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Timestamp        time.Time
	Model            string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	LatencyMS        int
	CacheSource      CacheSource
	Fingerprint      string
	RoutingDecision  *RoutingDecision
	ErrorTag         string
}

func (d *RoutingDecision) toJSON() ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
