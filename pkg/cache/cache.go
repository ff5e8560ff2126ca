// Package cache implements the two-tier (hot Redis + cold Postgres) response
// cache described by the request pipeline's cache lookup/fill step.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaymesh/llmgate/internal/telemetry"
	"github.com/relaymesh/llmgate/pkg/fingerprint"
)

// Source identifies where a response came from.
type Source string

const (
	SourceNone Source = "none"
	SourceHot  Source = "hot"
	SourceCold Source = "cold"
)

// Entry is the cached response envelope plus the metering facts needed to
// record a zero-cost UsageRecord on a hit.
type Entry struct {
	Envelope         []byte
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	SourceProvider   string
}

// Result is the outcome of a Lookup call.
type Result struct {
	Hit    bool
	Source Source
	Entry  Entry
}

// Cache coordinates the hot and cold tiers per tenant+fingerprint.
type Cache struct {
	hot    *HotStore
	cold   *ColdStore
	ttl    time.Duration
	logger *slog.Logger
}

func New(hot *HotStore, cold *ColdStore, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{hot: hot, cold: cold, ttl: ttl, logger: logger}
}

// Lookup checks hot first, then cold. A cold hit is promoted into hot
// (write-through) before returning. If hot is unavailable, lookup degrades
// to cold-only; if cold is also unavailable, lookup degrades to a miss.
func (c *Cache) Lookup(ctx context.Context, tenantID uuid.UUID, fp string) Result {
	if entry, err := c.hot.Get(ctx, tenantID.String(), fp); err == nil {
		telemetry.CacheLookupsTotal.WithLabelValues("hot", "hit").Inc()
		return Result{Hit: true, Source: SourceHot, Entry: entry}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("hot cache lookup failed, degrading to cold", "error", err)
		telemetry.CacheLookupsTotal.WithLabelValues("hot", "error").Inc()
	} else {
		telemetry.CacheLookupsTotal.WithLabelValues("hot", "miss").Inc()
	}

	entry, err := c.cold.Get(ctx, tenantID, fp)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cold cache lookup failed, treating as miss", "error", err)
		}
		telemetry.CacheLookupsTotal.WithLabelValues("cold", "miss").Inc()
		return Result{Hit: false, Source: SourceNone}
	}

	telemetry.CacheLookupsTotal.WithLabelValues("cold", "hit").Inc()
	if err := c.hot.Set(ctx, tenantID.String(), fp, entry, c.ttl); err != nil {
		c.logger.Warn("promoting cold hit to hot cache failed", "error", err)
	}
	if err := c.cold.RecordHit(ctx, tenantID, fp); err != nil {
		c.logger.Warn("recording cold cache hit failed", "error", err)
	}

	return Result{Hit: true, Source: SourceCold, Entry: entry}
}

// Fill writes hot (TTL'd) and upserts cold (durable, authoritative).
// Hot and cold writes are independent; a hot failure never blocks the cold
// write and vice versa, so fill is best-effort per tier.
func (c *Cache) Fill(ctx context.Context, tenantID uuid.UUID, fp string, entry Entry) {
	if err := c.hot.Set(ctx, tenantID.String(), fp, entry, c.ttl); err != nil {
		c.logger.Warn("hot cache fill failed", "error", err)
	}
	if err := c.cold.Upsert(ctx, tenantID, fp, entry); err != nil {
		c.logger.Warn("cold cache fill failed", "error", err)
	}
}

// Stats reports per-tenant cold-cache statistics.
func (c *Cache) Stats(ctx context.Context, tenantID uuid.UUID) (Stats, error) {
	return c.cold.Stats(ctx, tenantID)
}

// Clear removes entries for a tenant from the requested scope.
func (c *Cache) Clear(ctx context.Context, tenantID uuid.UUID, scope string) error {
	var errs []error
	if scope == "hot" || scope == "all" {
		if err := c.hot.Clear(ctx, tenantID.String()); err != nil {
			errs = append(errs, err)
		}
	}
	if scope == "cold" || scope == "all" {
		if err := c.cold.Clear(ctx, tenantID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RedisKey re-exports fingerprint.RedisKey for callers that only import cache.
func RedisKey(tenantID, fp string) string {
	return fingerprint.RedisKey(tenantID, fp)
}
