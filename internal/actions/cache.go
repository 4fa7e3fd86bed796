package actions

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"actionScope/internal/model"
)

const (
	tokenCacheKeyPrefix = "actions:token:"
	poolCacheKeyPrefix  = "actions:pool:"
)

// TokenMetaCache caches token metadata by lower-cased address. The in-memory
// map is the first level; an optional Redis client adds a second level that
// survives process restarts. Entries never expire and writes are
// last-resolved-wins upserts, so concurrent invocations are safe.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[string]model.TokenMeta
	rdb  *redis.Client
}

// NewTokenMetaCache builds a token metadata cache. rdb may be nil.
func NewTokenMetaCache(rdb *redis.Client) *TokenMetaCache {
	return &TokenMetaCache{data: make(map[string]model.TokenMeta), rdb: rdb}
}

func (c *TokenMetaCache) Get(ctx context.Context, address string) (model.TokenMeta, bool) {
	key := strings.ToLower(address)

	c.mu.RLock()
	meta, ok := c.data[key]
	c.mu.RUnlock()
	if ok {
		return meta, true
	}

	if c.rdb == nil {
		return model.TokenMeta{}, false
	}
	raw, err := c.rdb.Get(ctx, tokenCacheKeyPrefix+key).Result()
	if err != nil {
		return model.TokenMeta{}, false
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return model.TokenMeta{}, false
	}

	c.mu.Lock()
	c.data[key] = meta
	c.mu.Unlock()
	return meta, true
}

func (c *TokenMetaCache) Set(ctx context.Context, meta model.TokenMeta) {
	key := strings.ToLower(meta.Address)
	meta.Address = key

	c.mu.Lock()
	c.data[key] = meta
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	if payload, err := json.Marshal(meta); err == nil {
		_ = c.rdb.Set(ctx, tokenCacheKeyPrefix+key, payload, 0).Err()
	}
}

// PoolPairCache caches pool legitimacy records by lower-cased pool address.
// A cached empty slice means "illegitimate or unverifiable"; a two-element
// slice carries the factory-canonical token pair.
type PoolPairCache struct {
	mu   sync.RWMutex
	data map[string][]string
	rdb  *redis.Client
}

// NewPoolPairCache builds a pool legitimacy cache. rdb may be nil.
func NewPoolPairCache(rdb *redis.Client) *PoolPairCache {
	return &PoolPairCache{data: make(map[string][]string), rdb: rdb}
}

func (c *PoolPairCache) Get(ctx context.Context, address string) ([]string, bool) {
	key := strings.ToLower(address)

	c.mu.RLock()
	pair, ok := c.data[key]
	c.mu.RUnlock()
	if ok {
		return pair, true
	}

	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, poolCacheKeyPrefix+key).Result()
	if err != nil {
		return nil, false
	}
	pair = []string{}
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.data[key] = pair
	c.mu.Unlock()
	return pair, true
}

func (c *PoolPairCache) Set(ctx context.Context, address string, pair []string) {
	key := strings.ToLower(address)
	if pair == nil {
		pair = []string{}
	}

	c.mu.Lock()
	c.data[key] = pair
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	if payload, err := json.Marshal(pair); err == nil {
		_ = c.rdb.Set(ctx, poolCacheKeyPrefix+key, payload, 0).Err()
	}
}
