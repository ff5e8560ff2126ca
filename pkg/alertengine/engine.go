package alertengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaymesh/llmgate/pkg/notify"
	"github.com/relaymesh/llmgate/pkg/usage"
)

// Engine is a background worker that evaluates each tenant's alert
// thresholds on a wall-clock schedule and runs the once-daily summary job.
type Engine struct {
	configs  *ConfigStore
	ledger   *usage.Ledger
	logger   *slog.Logger
	interval time.Duration

	senderFor func(*Channel) (notify.Sender, error)

	// rateLimitFraction reports a tenant's current rate-limit utilization as
	// a fraction in [0, 1], injected to avoid a direct dependency on
	// pkg/ratelimit's counter internals.
	rateLimitFraction func(context.Context, uuid.UUID) (float64, error)

	lastDailySummary time.Time
}

// NewEngine creates an alert evaluator. senderFor builds the notify.Sender
// matching one AlertChannel's kind and configuration blob; rateLimitFraction
// reports current rate-limit utilization for the rate-limit-fraction
// threshold. interval is how often tick runs; a value <= 0 falls back to
// once an hour.
func NewEngine(
	configs *ConfigStore,
	ledger *usage.Ledger,
	logger *slog.Logger,
	interval time.Duration,
	senderFor func(*Channel) (notify.Sender, error),
	rateLimitFraction func(context.Context, uuid.UUID) (float64, error),
) *Engine {
	if interval <= 0 {
		interval = 60 * time.Minute
	}
	return &Engine{
		configs:           configs,
		ledger:            ledger,
		logger:            logger,
		interval:          interval,
		senderFor:         senderFor,
		rateLimitFraction: rateLimitFraction,
	}
}

// Run starts the evaluator loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("alert evaluator started", "interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("alert evaluator stopped")
			return nil
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				e.logger.Error("alert evaluator tick", "error", err)
			}
		}
	}
}

// tick evaluates thresholds for every tenant with an enabled alert config,
// then runs the daily summary job if the calendar day has rolled over.
func (e *Engine) tick(ctx context.Context) error {
	tenants, err := e.configs.ListEnabledTenants(ctx)
	if err != nil {
		return fmt.Errorf("listing tenants with alerts enabled: %w", err)
	}

	now := time.Now().UTC()
	for _, tenantID := range tenants {
		if err := e.evaluateTenant(ctx, tenantID, now); err != nil {
			e.logger.Error("evaluating tenant thresholds", "tenant_id", tenantID, "error", err)
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if e.lastDailySummary.Before(today) {
		for _, tenantID := range tenants {
			if err := e.sendDailySummary(ctx, tenantID, now); err != nil {
				e.logger.Error("sending daily summary", "tenant_id", tenantID, "error", err)
			}
		}
		e.lastDailySummary = today
	}

	return nil
}

// evaluateTenant checks every configured threshold for one tenant and
// dispatches a notification for each that has crossed its limit since it
// last fired.
func (e *Engine) evaluateTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) error {
	cfg, err := e.configs.GetConfig(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("loading alert config: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}

	daySpend, err := e.ledger.DaySpend(ctx, tenantID, now)
	if err != nil {
		return fmt.Errorf("computing day spend: %w", err)
	}
	monthSpend, err := e.ledger.MonthSpend(ctx, tenantID, now)
	if err != nil {
		return fmt.Errorf("computing month spend: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cacheHitRate, err := e.ledger.CacheHitRate(ctx, tenantID, today)
	if err != nil {
		return fmt.Errorf("computing cache hit rate: %w", err)
	}

	checks := []struct {
		kind  ThresholdKind
		value float64
	}{
		{ThresholdDailyCost, daySpend},
		{ThresholdMonthlyCost, monthSpend},
		// cache-hit-floor fires when the hit rate falls BELOW the
		// configured floor, the inverse sense of the cost thresholds; see
		// the comparison override below.
		{ThresholdCacheHitFloor, cacheHitRate},
	}

	if e.rateLimitFraction != nil {
		fraction, err := e.rateLimitFraction(ctx, tenantID)
		if err != nil {
			e.logger.Warn("computing rate-limit fraction", "tenant_id", tenantID, "error", err)
		} else {
			checks = append(checks, struct {
				kind  ThresholdKind
				value float64
			}{ThresholdRateLimitFraction, fraction})
		}
	}

	for _, check := range checks {
		limit, ok := cfg.Threshold(check.kind)
		if !ok || !crossed(check.kind, check.value, limit) {
			continue
		}
		windowStart, windowEnd := windowFor(check.kind, now)
		if fired, ok := cfg.LastFired[check.kind]; ok && !fired.Before(windowStart) {
			continue // already fired within this window
		}

		if err := e.fire(ctx, tenantID, check.kind, check.value, limit, "warning", windowStart, windowEnd); err != nil {
			return err
		}
	}

	return nil
}

// crossed reports whether value has crossed kind's threshold. Cost and
// rate-limit thresholds fire at-or-above the configured limit; the
// cache-hit-floor threshold fires at-or-below it, since a low hit rate is
// the problem.
func crossed(kind ThresholdKind, value, limit float64) bool {
	if kind == ThresholdCacheHitFloor {
		return value <= limit
	}
	return value >= limit
}

// windowFor returns the current window bounds a threshold kind resets on:
// daily-cost resets at midnight UTC, monthly-cost at the first of the month.
func windowFor(kind ThresholdKind, now time.Time) (time.Time, time.Time) {
	switch kind {
	case ThresholdMonthlyCost:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}

// fire dispatches a notification to every enabled channel for the tenant and
// marks the threshold as fired once at least one delivery succeeds.
func (e *Engine) fire(ctx context.Context, tenantID uuid.UUID, kind ThresholdKind, value, limit float64, severity string, windowStart, windowEnd time.Time) error {
	channels, err := e.configs.ListChannels(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("listing alert channels: %w", err)
	}

	payload := notify.Payload{
		TenantID:      tenantID.String(),
		ThresholdKind: string(kind),
		Severity:      severity,
		Title:         fmt.Sprintf("%s threshold crossed", kind),
		Value:         value,
		Limit:         limit,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
	}

	delivered := false
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		sender, err := e.senderFor(ch)
		if err != nil {
			e.logger.Warn("building notification sender", "channel_id", ch.ID, "error", err)
			continue
		}
		if err := notify.Dispatch(ctx, e.logger, sender, payload); err != nil {
			e.logger.Warn("dispatching notification", "channel_id", ch.ID, "kind", ch.Kind, "error", err)
			continue
		}
		delivered = true
	}

	if delivered {
		if err := e.configs.MarkFired(ctx, tenantID, kind, time.Now().UTC()); err != nil {
			return fmt.Errorf("marking threshold fired: %w", err)
		}
	}
	return nil
}

// sendDailySummary dispatches yesterday's totals as a lower-severity
// notification, regardless of whether any threshold crossed.
func (e *Engine) sendDailySummary(ctx context.Context, tenantID uuid.UUID, now time.Time) error {
	totals, err := e.ledger.YesterdayTotals(ctx, tenantID, now)
	if err != nil {
		return fmt.Errorf("computing yesterday totals: %w", err)
	}

	channels, err := e.configs.ListChannels(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("listing alert channels: %w", err)
	}

	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	payload := notify.Payload{
		TenantID:      tenantID.String(),
		ThresholdKind: "daily_summary",
		Severity:      "info",
		Title:         "Daily usage summary",
		Value:         totals.Cost,
		Limit:         0,
		WindowStart:   yesterday,
		WindowEnd:     yesterday.AddDate(0, 0, 1),
	}

	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		sender, err := e.senderFor(ch)
		if err != nil {
			e.logger.Warn("building notification sender", "channel_id", ch.ID, "error", err)
			continue
		}
		if err := notify.Dispatch(ctx, e.logger, sender, payload); err != nil {
			e.logger.Warn("dispatching daily summary", "channel_id", ch.ID, "kind", ch.Kind, "error", err)
		}
	}
	return nil
}
