package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache stores validated agent output by key. Implementations must be safe for concurrent use.
// A failing backend behaves as a miss; it never fails the invocation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// CacheKey derives a deterministic key from the agent name and its inputs.
func CacheKey(agentName string, inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(agentName))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(inputs[k]))
	}
	return "agent:" + agentName + ":" + hex.EncodeToString(h.Sum(nil))
}

// LRUCache is a bounded in-process cache with per-entry TTL.
type LRUCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCache holds at most size entries, each for ttl. A zero ttl disables expiry.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 1000
	}
	return &LRUCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares agent output between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps an existing client. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", "key", key, "error", err)
	}
}

// TieredCache reads through its tiers in order and backfills faster tiers on a hit.
type TieredCache struct {
	tiers []Cache
}

// NewTieredCache composes caches, fastest first. Nil tiers are skipped.
func NewTieredCache(tiers ...Cache) *TieredCache {
	t := &TieredCache{}
	for _, c := range tiers {
		if c != nil {
			t.tiers = append(t.tiers, c)
		}
	}
	return t
}

func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, c := range t.tiers {
		if val, ok := c.Get(ctx, key); ok {
			for j := 0; j < i; j++ {
				t.tiers[j].Set(ctx, key, val)
			}
			return val, true
		}
	}
	return nil, false
}

func (t *TieredCache) Set(ctx context.Context, key string, value []byte) {
	for _, c := range t.tiers {
		c.Set(ctx, key, value)
	}
}
