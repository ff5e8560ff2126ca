package ratelimit

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBucketKeyMinuteFormat(t *testing.T) {
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	now := time.Date(2026, 3, 5, 14, 32, 17, 0, time.UTC)

	key, end := bucketKey(tenantID, WindowMinute, now)

	want := "rate:00000000-0000-0000-0000-000000000001:minute:202603051432"
	if key != want {
		t.Fatalf("bucketKey() = %q, want %q", key, want)
	}
	if !end.Equal(time.Date(2026, 3, 5, 14, 33, 0, 0, time.UTC)) {
		t.Fatalf("window end = %v, want 14:33:00Z", end)
	}
}

func TestBucketKeyDayFormat(t *testing.T) {
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	now := time.Date(2026, 3, 5, 14, 32, 17, 0, time.UTC)

	key, end := bucketKey(tenantID, WindowDay, now)

	want := "rate:00000000-0000-0000-0000-000000000001:day:20260305"
	if key != want {
		t.Fatalf("bucketKey() = %q, want %q", key, want)
	}
	if !end.Equal(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window end = %v, want midnight the next day", end)
	}
}

func TestBucketKeyStableWithinSameMinute(t *testing.T) {
	tenantID := uuid.New()
	t1 := time.Date(2026, 3, 5, 14, 32, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 5, 14, 32, 59, 0, time.UTC)

	k1, _ := bucketKey(tenantID, WindowMinute, t1)
	k2, _ := bucketKey(tenantID, WindowMinute, t2)
	if k1 != k2 {
		t.Fatalf("expected identical bucket keys within the same minute, got %q and %q", k1, k2)
	}
}

func TestBucketKeyChangesAcrossMinuteBoundary(t *testing.T) {
	tenantID := uuid.New()
	t1 := time.Date(2026, 3, 5, 14, 32, 59, 0, time.UTC)
	t2 := time.Date(2026, 3, 5, 14, 33, 0, 0, time.UTC)

	k1, _ := bucketKey(tenantID, WindowMinute, t1)
	k2, _ := bucketKey(tenantID, WindowMinute, t2)
	if k1 == k2 {
		t.Fatalf("expected different bucket keys across a minute boundary")
	}
}

func TestMax0(t *testing.T) {
	if max0(-5) != 0 {
		t.Fatalf("max0(-5) should be 0")
	}
	if max0(5) != 5 {
		t.Fatalf("max0(5) should be 5")
	}
}
