package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("cache entry not found")

// Stats summarizes cold-cache effectiveness for a tenant.
type Stats struct {
	Entries        int64
	TotalHits      int64
	EstimatedSaved float64
}

// ColdStore is the Postgres-backed durable tier. It is authoritative: a hot
// miss always falls back here, and hit-count updates are monotone.
type ColdStore struct {
	pool *pgxpool.Pool
}

func NewColdStore(pool *pgxpool.Pool) *ColdStore {
	return &ColdStore{pool: pool}
}

func (c *ColdStore) Get(ctx context.Context, tenantID uuid.UUID, fp string) (Entry, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT envelope, prompt_tokens, completion_tokens, cost, source_provider
		FROM cache_cold WHERE tenant_id = $1 AND fingerprint = $2
	`, tenantID, fp)

	var raw []byte
	var e Entry
	err := row.Scan(&raw, &e.PromptTokens, &e.CompletionTokens, &e.Cost, &e.SourceProvider)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scanning cold cache entry: %w", err)
	}
	e.Envelope = raw
	return e, nil
}

// Upsert writes the entry for (tenant, fingerprint). At most one row exists
// per key; a repeat upsert with the same envelope is a no-op in effect.
func (c *ColdStore) Upsert(ctx context.Context, tenantID uuid.UUID, fp string, e Entry) error {
	now := time.Now().UTC()
	_, err := c.pool.Exec(ctx, `
		INSERT INTO cache_cold (tenant_id, fingerprint, envelope, prompt_tokens, completion_tokens, cost, source_provider, hit_count, created_at, last_hit_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8)
		ON CONFLICT (tenant_id, fingerprint) DO UPDATE
		SET envelope = EXCLUDED.envelope,
		    prompt_tokens = EXCLUDED.prompt_tokens,
		    completion_tokens = EXCLUDED.completion_tokens,
		    cost = EXCLUDED.cost,
		    source_provider = EXCLUDED.source_provider
	`, tenantID, fp, []byte(e.Envelope), e.PromptTokens, e.CompletionTokens, e.Cost, e.SourceProvider, now)
	if err != nil {
		return fmt.Errorf("upserting cold cache entry: %w", err)
	}
	return nil
}

// RecordHit monotonically increments hit_count and bumps last_hit_at.
func (c *ColdStore) RecordHit(ctx context.Context, tenantID uuid.UUID, fp string) error {
	_, err := c.pool.Exec(ctx, `
		UPDATE cache_cold SET hit_count = hit_count + 1, last_hit_at = $3
		WHERE tenant_id = $1 AND fingerprint = $2
	`, tenantID, fp, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording cold cache hit: %w", err)
	}
	return nil
}

func (c *ColdStore) Stats(ctx context.Context, tenantID uuid.UUID) (Stats, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(hit_count), 0), COALESCE(SUM(hit_count * cost), 0)
		FROM cache_cold WHERE tenant_id = $1
	`, tenantID)

	var s Stats
	if err := row.Scan(&s.Entries, &s.TotalHits, &s.EstimatedSaved); err != nil {
		return Stats{}, fmt.Errorf("scanning cache stats: %w", err)
	}
	return s, nil
}

// TopDuplicates returns the fingerprints with the highest hit counts, used
// to recommend increasing cache TTL for tenants with heavy duplication.
func (c *ColdStore) TopDuplicates(ctx context.Context, tenantID uuid.UUID, limit int) ([]DuplicateRow, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT fingerprint, hit_count FROM cache_cold
		WHERE tenant_id = $1 AND hit_count > 0
		ORDER BY hit_count DESC LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top duplicates: %w", err)
	}
	defer rows.Close()

	var out []DuplicateRow
	for rows.Next() {
		var d DuplicateRow
		if err := rows.Scan(&d.Fingerprint, &d.HitCount); err != nil {
			return nil, fmt.Errorf("scanning duplicate row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type DuplicateRow struct {
	Fingerprint string
	HitCount    int64
}

func (c *ColdStore) Clear(ctx context.Context, tenantID uuid.UUID) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM cache_cold WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("clearing cold cache: %w", err)
	}
	return nil
}
