package alertengine

import (
	"testing"
	"time"
)

func TestCrossed(t *testing.T) {
	tests := []struct {
		name  string
		kind  ThresholdKind
		value float64
		limit float64
		want  bool
	}{
		{"daily cost at limit fires", ThresholdDailyCost, 10, 10, true},
		{"daily cost above limit fires", ThresholdDailyCost, 11, 10, true},
		{"daily cost below limit does not fire", ThresholdDailyCost, 9, 10, false},
		{"monthly cost above limit fires", ThresholdMonthlyCost, 500, 400, true},
		{"rate limit fraction above limit fires", ThresholdRateLimitFraction, 0.95, 0.9, true},
		{"rate limit fraction below limit does not fire", ThresholdRateLimitFraction, 0.5, 0.9, false},
		{"cache hit floor at limit fires", ThresholdCacheHitFloor, 0.2, 0.2, true},
		{"cache hit floor below limit fires", ThresholdCacheHitFloor, 0.1, 0.2, true},
		{"cache hit floor above limit does not fire", ThresholdCacheHitFloor, 0.6, 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crossed(tt.kind, tt.value, tt.limit); got != tt.want {
				t.Errorf("crossed(%v, %v, %v) = %v, want %v", tt.kind, tt.value, tt.limit, got, tt.want)
			}
		})
	}
}

func TestWindowForDaily(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	for _, kind := range []ThresholdKind{ThresholdDailyCost, ThresholdRateLimitFraction, ThresholdCacheHitFloor} {
		start, end := windowFor(kind, now)
		wantStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		wantEnd := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
		if !start.Equal(wantStart) || !end.Equal(wantEnd) {
			t.Errorf("windowFor(%v, %v) = (%v, %v), want (%v, %v)", kind, now, start, end, wantStart, wantEnd)
		}
	}
}

func TestWindowForMonthly(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	start, end := windowFor(ThresholdMonthlyCost, now)

	wantStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("windowFor(monthly, %v) = (%v, %v), want (%v, %v)", now, start, end, wantStart, wantEnd)
	}
}

func TestWindowForMonthlyRollsOverAtYearEnd(t *testing.T) {
	now := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	_, end := windowFor(ThresholdMonthlyCost, now)

	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Errorf("windowFor(monthly, %v) end = %v, want %v", now, end, want)
	}
}

func TestLastFiredColumn(t *testing.T) {
	tests := []struct {
		kind ThresholdKind
		want string
	}{
		{ThresholdDailyCost, "last_fired_daily_cost"},
		{ThresholdMonthlyCost, "last_fired_monthly_cost"},
		{ThresholdRateLimitFraction, "last_fired_rate_limit_fraction"},
		{ThresholdCacheHitFloor, "last_fired_cache_hit_floor"},
		{ThresholdKind("unknown"), ""},
	}

	for _, tt := range tests {
		if got := lastFiredColumn(tt.kind); got != tt.want {
			t.Errorf("lastFiredColumn(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestConfigThreshold(t *testing.T) {
	daily := 25.0
	cfg := Config{DailyCost: &daily}

	if got, ok := cfg.Threshold(ThresholdDailyCost); !ok || got != daily {
		t.Errorf("Threshold(daily) = (%v, %v), want (%v, true)", got, ok, daily)
	}
	if _, ok := cfg.Threshold(ThresholdMonthlyCost); ok {
		t.Error("Threshold(monthly) should be unset")
	}
}
