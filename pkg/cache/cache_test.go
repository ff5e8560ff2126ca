package cache

import "testing"

func TestRedisKeyFormat(t *testing.T) {
	got := RedisKey("tenant-1", "abc123")
	want := "cache:tenant-1:abc123"
	if got != want {
		t.Fatalf("RedisKey() = %q, want %q", got, want)
	}
}
