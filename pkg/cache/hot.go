package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaymesh/llmgate/pkg/fingerprint"
)

// HotStore is the Redis-backed short-TTL tier.
type HotStore struct {
	rdb *redis.Client
}

func NewHotStore(rdb *redis.Client) *HotStore {
	return &HotStore{rdb: rdb}
}

func (h *HotStore) Get(ctx context.Context, tenantID, fp string) (Entry, error) {
	raw, err := h.rdb.Get(ctx, fingerprint.RedisKey(tenantID, fp)).Bytes()
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decoding hot cache entry: %w", err)
	}
	return e, nil
}

func (h *HotStore) Set(ctx context.Context, tenantID, fp string, e Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding hot cache entry: %w", err)
	}
	return h.rdb.Set(ctx, fingerprint.RedisKey(tenantID, fp), raw, ttl).Err()
}

func (h *HotStore) Clear(ctx context.Context, tenantID string) error {
	pattern := fmt.Sprintf("cache:%s:*", tenantID)
	iter := h.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return h.rdb.Del(ctx, keys...).Err()
}
