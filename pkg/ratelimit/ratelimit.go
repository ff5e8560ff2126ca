// Package ratelimit enforces per-tenant minute/hour/day request budgets
// using calendar-bucketed Redis counters.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaymesh/llmgate/internal/telemetry"
)

// Window identifies one of the three independent counters.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

var allWindows = []Window{WindowMinute, WindowHour, WindowDay}

// Limits holds the effective per-window caps for a tenant.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

func (l Limits) limit(w Window) int {
	switch w {
	case WindowMinute:
		return l.PerMinute
	case WindowHour:
		return l.PerHour
	default:
		return l.PerDay
	}
}

// Usage reports the state of a single window after a check.
type Usage struct {
	Used      int
	Limit     int
	Remaining int
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed    bool
	DeniedOn   Window
	RetryAfter time.Duration
	Usage      map[Window]Usage
	FailedOpen bool
}

// Limiter enforces Limits via atomic Redis INCR+EXPIRE against
// calendar-bucketed keys (rate:{tenant}:{window}:{bucket}).
type Limiter struct {
	rdb    *redis.Client
	logger *slog.Logger
	clock  func() time.Time
}

func New(rdb *redis.Client, logger *slog.Logger) *Limiter {
	return &Limiter{rdb: rdb, logger: logger, clock: time.Now}
}

// Check atomically increments each window's counter in order
// {minute, hour, day} and denies on the first window whose new value
// exceeds the limit. On Redis unavailability it fails open: the request is
// allowed and a warning is logged, per the fail-open rule.
func (l *Limiter) Check(ctx context.Context, tenantID uuid.UUID, limits Limits) Decision {
	now := l.clock().UTC()
	usage := make(map[Window]Usage, len(allWindows))

	for _, w := range allWindows {
		key, windowEnd := bucketKey(tenantID, w, now)
		limit := limits.limit(w)

		count, err := l.increment(ctx, key, windowEnd.Sub(now))
		if err != nil {
			l.logger.Warn("rate limit store unavailable, failing open", "window", w, "error", err)
			telemetry.RateLimitDecisionsTotal.WithLabelValues(string(w), "fail_open").Inc()
			return Decision{Allowed: true, FailedOpen: true, Usage: usage}
		}

		usage[w] = Usage{Used: count, Limit: limit, Remaining: max0(limit - count)}

		if count > limit {
			retryAfter := windowEnd.Sub(now)
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			telemetry.RateLimitDecisionsTotal.WithLabelValues(string(w), "denied").Inc()
			return Decision{Allowed: false, DeniedOn: w, RetryAfter: retryAfter, Usage: usage}
		}
	}

	telemetry.RateLimitDecisionsTotal.WithLabelValues(string(WindowMinute), "allowed").Inc()
	return Decision{Allowed: true, Usage: usage}
}

// Peek reads the current usage for every window without incrementing.
func (l *Limiter) Peek(ctx context.Context, tenantID uuid.UUID, limits Limits) (map[Window]Usage, error) {
	now := l.clock().UTC()
	usage := make(map[Window]Usage, len(allWindows))
	for _, w := range allWindows {
		key, _ := bucketKey(tenantID, w, now)
		count, err := l.rdb.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("reading rate limit usage: %w", err)
		}
		limit := limits.limit(w)
		usage[w] = Usage{Used: count, Limit: limit, Remaining: max0(limit - count)}
	}
	return usage, nil
}

// Reset clears all three window counters for a tenant, typically invoked by
// an administrative reset operation.
func (l *Limiter) Reset(ctx context.Context, tenantID uuid.UUID) error {
	now := l.clock().UTC()
	keys := make([]string, 0, len(allWindows))
	for _, w := range allWindows {
		key, _ := bucketKey(tenantID, w, now)
		keys = append(keys, key)
	}
	return l.rdb.Del(ctx, keys...).Err()
}

func (l *Limiter) increment(ctx context.Context, key string, ttl time.Duration) (int, error) {
	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	return int(incr.Val()), nil
}

// bucketKey returns the Redis key and the UTC instant the window ends.
func bucketKey(tenantID uuid.UUID, w Window, now time.Time) (string, time.Time) {
	var bucket string
	var end time.Time

	switch w {
	case WindowMinute:
		start := now.Truncate(time.Minute)
		bucket = start.Format("200601021504")
		end = start.Add(time.Minute)
	case WindowHour:
		start := now.Truncate(time.Hour)
		bucket = start.Format("2006010215")
		end = start.Add(time.Hour)
	default:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		bucket = start.Format("20060102")
		end = start.Add(24 * time.Hour)
	}

	return fmt.Sprintf("rate:%s:%s:%s", tenantID, w, bucket), end
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
