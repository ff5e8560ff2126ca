package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the append-only Postgres backing for usage_log.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes one record. Batches of records should call InsertBatch
// instead to amortize the round trip.
func (s *Store) Insert(ctx context.Context, r Record) error {
	return s.InsertBatch(ctx, []Record{r})
}

// InsertBatch writes a batch of records inside a single transaction so a
// flush from usage.Writer either lands completely or not at all.
func (s *Store) InsertBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning usage log transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		decisionJSON, err := r.RoutingDecision.toJSON()
		if err != nil {
			return fmt.Errorf("encoding routing decision: %w", err)
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now().UTC()
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO usage_log
				(id, tenant_id, ts, model, provider, prompt_tokens, completion_tokens,
				 cost, latency_ms, cache_source, fingerprint, routing_decision, error_tag)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, r.ID, r.TenantID, r.Timestamp, r.Model, r.Provider, r.PromptTokens, r.CompletionTokens,
			r.Cost, r.LatencyMS, string(r.CacheSource), r.Fingerprint, decisionJSON, r.ErrorTag)
		if err != nil {
			return fmt.Errorf("inserting usage record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing usage log transaction: %w", err)
	}
	return nil
}

// WindowTotals is the sum of tokens, cost, and request count over a window.
type WindowTotals struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
}

// TotalsSince sums usage for a tenant from start to now.
func (s *Store) TotalsSince(ctx context.Context, tenantID uuid.UUID, start time.Time) (WindowTotals, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(cost), 0)
		FROM usage_log WHERE tenant_id = $1 AND ts >= $2
	`, tenantID, start)

	var t WindowTotals
	if err := row.Scan(&t.Requests, &t.PromptTokens, &t.CompletionTokens, &t.Cost); err != nil {
		return WindowTotals{}, fmt.Errorf("scanning usage totals: %w", err)
	}
	return t, nil
}

// CacheHitCounts returns the total request count and the subset served from
// cache (cache_source != 'none') for a tenant since start.
func (s *Store) CacheHitCounts(ctx context.Context, tenantID uuid.UUID, start time.Time) (total, hits int64, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE cache_source <> 'none')
		FROM usage_log WHERE tenant_id = $1 AND ts >= $2
	`, tenantID, start)
	if err := row.Scan(&total, &hits); err != nil {
		return 0, 0, fmt.Errorf("scanning cache hit counts: %w", err)
	}
	return total, hits, nil
}

// BreakdownRow is one (model, provider) group's totals within a window.
type BreakdownRow struct {
	Model    string
	Provider string
	WindowTotals
}

// BreakdownSince groups usage by model and provider for a tenant since start.
func (s *Store) BreakdownSince(ctx context.Context, tenantID uuid.UUID, start time.Time) ([]BreakdownRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT model, provider, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(cost), 0)
		FROM usage_log WHERE tenant_id = $1 AND ts >= $2
		GROUP BY model, provider
		ORDER BY SUM(cost) DESC
	`, tenantID, start)
	if err != nil {
		return nil, fmt.Errorf("querying usage breakdown: %w", err)
	}
	defer rows.Close()

	var out []BreakdownRow
	for rows.Next() {
		var b BreakdownRow
		if err := rows.Scan(&b.Model, &b.Provider, &b.Requests, &b.PromptTokens, &b.CompletionTokens, &b.Cost); err != nil {
			return nil, fmt.Errorf("scanning breakdown row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DuplicateRow is one fingerprint's repeat-hit count within a window, used
// to recommend raising cache TTL for tenants with heavy request duplication.
type DuplicateRow struct {
	Fingerprint string
	HitCount    int64
}

// TopDuplicateFingerprints returns the fingerprints seen most often (beyond
// their first occurrence) for a tenant since start.
func (s *Store) TopDuplicateFingerprints(ctx context.Context, tenantID uuid.UUID, start time.Time, limit int) ([]DuplicateRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fingerprint, COUNT(*) - 1 AS repeats
		FROM usage_log
		WHERE tenant_id = $1 AND ts >= $2
		GROUP BY fingerprint
		HAVING COUNT(*) > 1
		ORDER BY repeats DESC
		LIMIT $3
	`, tenantID, start, limit)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate fingerprints: %w", err)
	}
	defer rows.Close()

	var out []DuplicateRow
	for rows.Next() {
		var d DuplicateRow
		if err := rows.Scan(&d.Fingerprint, &d.HitCount); err != nil {
			return nil, fmt.Errorf("scanning duplicate fingerprint row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
