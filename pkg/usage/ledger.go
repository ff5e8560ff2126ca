package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger is the read side consumed by the alert evaluator and the
// /analytics/* endpoints: day/month spend, breakdowns, and the
// duplicate-fingerprint signal used to recommend cache tuning.
type Ledger struct {
	store *Store
}

func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

// DaySpend returns the tenant's spend since the start of the current UTC
// calendar day.
func (l *Ledger) DaySpend(ctx context.Context, tenantID uuid.UUID, now time.Time) (float64, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	totals, err := l.store.TotalsSince(ctx, tenantID, start)
	if err != nil {
		return 0, fmt.Errorf("computing day spend: %w", err)
	}
	return totals.Cost, nil
}

// MonthSpend returns the tenant's spend since the start of the current UTC
// calendar month.
func (l *Ledger) MonthSpend(ctx context.Context, tenantID uuid.UUID, now time.Time) (float64, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	totals, err := l.store.TotalsSince(ctx, tenantID, start)
	if err != nil {
		return 0, fmt.Errorf("computing month spend: %w", err)
	}
	return totals.Cost, nil
}

// YesterdayTotals returns the prior UTC calendar day's totals for the
// daily-summary notification.
func (l *Ledger) YesterdayTotals(ctx context.Context, tenantID uuid.UUID, now time.Time) (WindowTotals, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	all, err := l.store.TotalsSince(ctx, tenantID, yesterday)
	if err != nil {
		return WindowTotals{}, err
	}
	sinceToday, err := l.store.TotalsSince(ctx, tenantID, today)
	if err != nil {
		return WindowTotals{}, err
	}
	return WindowTotals{
		Requests:         all.Requests - sinceToday.Requests,
		PromptTokens:     all.PromptTokens - sinceToday.PromptTokens,
		CompletionTokens: all.CompletionTokens - sinceToday.CompletionTokens,
		Cost:             all.Cost - sinceToday.Cost,
	}, nil
}

// CacheHitRate returns the fraction of a tenant's requests since start that
// were served from the cache (hot or cold), the signal the cache-hit-floor
// alert threshold watches.
func (l *Ledger) CacheHitRate(ctx context.Context, tenantID uuid.UUID, since time.Time) (float64, error) {
	total, hits, err := l.store.CacheHitCounts(ctx, tenantID, since)
	if err != nil {
		return 0, fmt.Errorf("computing cache hit rate: %w", err)
	}
	if total == 0 {
		return 1, nil // no traffic yet; don't spuriously fire a low-hit-rate alert
	}
	return float64(hits) / float64(total), nil
}

// Usage returns request/token/cost totals for a tenant over an arbitrary
// window, for the /analytics/usage endpoint.
func (l *Ledger) Usage(ctx context.Context, tenantID uuid.UUID, since time.Time) (WindowTotals, error) {
	return l.store.TotalsSince(ctx, tenantID, since)
}

// Breakdown returns per-model/provider totals for the /analytics/breakdown
// endpoint.
func (l *Ledger) Breakdown(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]BreakdownRow, error) {
	return l.store.BreakdownSince(ctx, tenantID, since)
}

// Recommendation is one cache-tuning suggestion derived from duplicate
// request volume.
type Recommendation struct {
	Fingerprint string
	HitCount    int64
	Suggestion  string
}

// Recommendations surfaces the fingerprints with the heaviest duplication
// over the window, suggesting a longer hot-cache TTL for tenants whose
// traffic is dominated by repeat requests.
func (l *Ledger) Recommendations(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]Recommendation, error) {
	rows, err := l.store.TopDuplicateFingerprints(ctx, tenantID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("computing recommendations: %w", err)
	}

	out := make([]Recommendation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Recommendation{
			Fingerprint: r.Fingerprint,
			HitCount:    r.HitCount,
			Suggestion:  fmt.Sprintf("fingerprint %s repeated %d times; consider a longer hot-cache TTL", r.Fingerprint, r.HitCount),
		})
	}
	return out, nil
}
