// Package alertengine runs the periodic threshold evaluator and daily
// summary job, and manages the alert channel/threshold configuration that
// drive them.
package alertengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelKind is the delivery mechanism for one AlertChannel.
type ChannelKind string

const (
	ChannelSlack   ChannelKind = "slack"
	ChannelEmail   ChannelKind = "email"
	ChannelWebhook ChannelKind = "webhook"
)

// Channel is one tenant's configured notification destination.
type Channel struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Kind      ChannelKind
	Config    []byte // JSON blob, shape depends on Kind
	Enabled   bool
	CreatedAt time.Time
}

// ThresholdKind names one of the four alert conditions a tenant can
// configure.
type ThresholdKind string

const (
	ThresholdDailyCost         ThresholdKind = "daily_cost"
	ThresholdMonthlyCost       ThresholdKind = "monthly_cost"
	ThresholdRateLimitFraction ThresholdKind = "rate_limit_fraction"
	ThresholdCacheHitFloor     ThresholdKind = "cache_hit_floor"
)

// Config holds a tenant's threshold values and when each last fired, so the
// evaluator can enforce at-most-once-per-window delivery.
type Config struct {
	TenantID          uuid.UUID
	DailyCost         *float64
	MonthlyCost       *float64
	RateLimitFraction *float64
	CacheHitFloor     *float64
	Enabled           bool
	LastFired         map[ThresholdKind]time.Time
}

// Threshold returns the configured limit for kind, if any.
func (c Config) Threshold(kind ThresholdKind) (float64, bool) {
	switch kind {
	case ThresholdDailyCost:
		if c.DailyCost != nil {
			return *c.DailyCost, true
		}
	case ThresholdMonthlyCost:
		if c.MonthlyCost != nil {
			return *c.MonthlyCost, true
		}
	case ThresholdRateLimitFraction:
		if c.RateLimitFraction != nil {
			return *c.RateLimitFraction, true
		}
	case ThresholdCacheHitFloor:
		if c.CacheHitFloor != nil {
			return *c.CacheHitFloor, true
		}
	}
	return 0, false
}

// ConfigStore persists AlertChannel and AlertConfig rows.
type ConfigStore struct {
	pool *pgxpool.Pool
}

func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

func (s *ConfigStore) CreateChannel(ctx context.Context, c *Channel) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_channels (id, tenant_id, kind, config, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.TenantID, string(c.Kind), c.Config, c.Enabled, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating alert channel: %w", err)
	}
	return nil
}

func (s *ConfigStore) ListChannels(ctx context.Context, tenantID uuid.UUID) ([]*Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, kind, config, enabled, created_at
		FROM alert_channels WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing alert channels: %w", err)
	}
	defer rows.Close()

	var out []*Channel
	for rows.Next() {
		var c Channel
		var kind string
		if err := rows.Scan(&c.ID, &c.TenantID, &kind, &c.Config, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert channel: %w", err)
		}
		c.Kind = ChannelKind(kind)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *ConfigStore) DeleteChannel(ctx context.Context, tenantID, channelID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM alert_channels WHERE tenant_id = $1 AND id = $2`, tenantID, channelID)
	if err != nil {
		return fmt.Errorf("deleting alert channel: %w", err)
	}
	return nil
}

// GetConfig returns a tenant's threshold config, or a disabled zero-value if
// none has ever been set.
func (s *ConfigStore) GetConfig(ctx context.Context, tenantID uuid.UUID) (Config, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT daily_cost, monthly_cost, rate_limit_fraction, cache_hit_floor, enabled,
		       last_fired_daily_cost, last_fired_monthly_cost, last_fired_rate_limit_fraction, last_fired_cache_hit_floor
		FROM alert_configs WHERE tenant_id = $1
	`, tenantID)

	var c Config
	c.TenantID = tenantID
	var lastDaily, lastMonthly, lastRate, lastCache *time.Time
	err := row.Scan(&c.DailyCost, &c.MonthlyCost, &c.RateLimitFraction, &c.CacheHitFloor, &c.Enabled,
		&lastDaily, &lastMonthly, &lastRate, &lastCache)
	if errors.Is(err, pgx.ErrNoRows) {
		c.LastFired = map[ThresholdKind]time.Time{}
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("scanning alert config: %w", err)
	}

	c.LastFired = map[ThresholdKind]time.Time{}
	if lastDaily != nil {
		c.LastFired[ThresholdDailyCost] = *lastDaily
	}
	if lastMonthly != nil {
		c.LastFired[ThresholdMonthlyCost] = *lastMonthly
	}
	if lastRate != nil {
		c.LastFired[ThresholdRateLimitFraction] = *lastRate
	}
	if lastCache != nil {
		c.LastFired[ThresholdCacheHitFloor] = *lastCache
	}
	return c, nil
}

// UpsertConfig replaces a tenant's threshold config, preserving last-fired
// timestamps (callers update those independently via MarkFired).
func (s *ConfigStore) UpsertConfig(ctx context.Context, c Config) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_configs (tenant_id, daily_cost, monthly_cost, rate_limit_fraction, cache_hit_floor, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id) DO UPDATE
		SET daily_cost = EXCLUDED.daily_cost,
		    monthly_cost = EXCLUDED.monthly_cost,
		    rate_limit_fraction = EXCLUDED.rate_limit_fraction,
		    cache_hit_floor = EXCLUDED.cache_hit_floor,
		    enabled = EXCLUDED.enabled
	`, c.TenantID, c.DailyCost, c.MonthlyCost, c.RateLimitFraction, c.CacheHitFloor, c.Enabled)
	if err != nil {
		return fmt.Errorf("upserting alert config: %w", err)
	}
	return nil
}

// MarkFired records that kind's threshold fired just now, so the evaluator
// won't fire it again within the same window.
func (s *ConfigStore) MarkFired(ctx context.Context, tenantID uuid.UUID, kind ThresholdKind, when time.Time) error {
	column := lastFiredColumn(kind)
	if column == "" {
		return fmt.Errorf("unknown threshold kind %q", kind)
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`UPDATE alert_configs SET %s = $2 WHERE tenant_id = $1`, column), tenantID, when)
	if err != nil {
		return fmt.Errorf("marking threshold fired: %w", err)
	}
	return nil
}

// ListEnabledTenants returns every tenant with an enabled alert config, the
// unit of iteration for each evaluator tick.
func (s *ConfigStore) ListEnabledTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT tenant_id FROM alert_configs WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("listing enabled alert configs: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tenant id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func lastFiredColumn(kind ThresholdKind) string {
	switch kind {
	case ThresholdDailyCost:
		return "last_fired_daily_cost"
	case ThresholdMonthlyCost:
		return "last_fired_monthly_cost"
	case ThresholdRateLimitFraction:
		return "last_fired_rate_limit_fraction"
	case ThresholdCacheHitFloor:
		return "last_fired_cache_hit_floor"
	default:
		return ""
	}
}
