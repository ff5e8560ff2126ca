package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOutOfRange = errors.New("rate limit value out of range")

// ConfigStore persists per-tenant overrides of the default limits.
type ConfigStore struct {
	pool     *pgxpool.Pool
	defaults Limits
}

func NewConfigStore(pool *pgxpool.Pool, defaults Limits) *ConfigStore {
	return &ConfigStore{pool: pool, defaults: defaults}
}

// Effective returns the tenant's configured limits, or the process defaults
// if the tenant has no row or its config is disabled.
func (s *ConfigStore) Effective(ctx context.Context, tenantID uuid.UUID) (Limits, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT per_minute, per_hour, per_day, enabled
		FROM rate_limit_configs WHERE tenant_id = $1
	`, tenantID)

	var l Limits
	var enabled bool
	err := row.Scan(&l.PerMinute, &l.PerHour, &l.PerDay, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return Limits{}, fmt.Errorf("scanning rate limit config: %w", err)
	}
	if !enabled {
		return s.defaults, nil
	}
	return l, nil
}

// Update validates and upserts a tenant's override. Ranges per the
// management contract: minute in [1, 10000], hour in [1, 1000000],
// day in [1, 10000000].
func (s *ConfigStore) Update(ctx context.Context, tenantID uuid.UUID, l Limits) error {
	if l.PerMinute < 1 || l.PerMinute > 10_000 {
		return fmt.Errorf("%w: per_minute must be in [1, 10000]", ErrOutOfRange)
	}
	if l.PerHour < 1 || l.PerHour > 1_000_000 {
		return fmt.Errorf("%w: per_hour must be in [1, 1000000]", ErrOutOfRange)
	}
	if l.PerDay < 1 || l.PerDay > 10_000_000 {
		return fmt.Errorf("%w: per_day must be in [1, 10000000]", ErrOutOfRange)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rate_limit_configs (tenant_id, per_minute, per_hour, per_day, enabled)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (tenant_id) DO UPDATE
		SET per_minute = EXCLUDED.per_minute, per_hour = EXCLUDED.per_hour, per_day = EXCLUDED.per_day, enabled = true
	`, tenantID, l.PerMinute, l.PerHour, l.PerDay)
	if err != nil {
		return fmt.Errorf("upserting rate limit config: %w", err)
	}
	return nil
}

// Delete reverts a tenant to the process defaults.
func (s *ConfigStore) Delete(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_configs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("deleting rate limit config: %w", err)
	}
	return nil
}
