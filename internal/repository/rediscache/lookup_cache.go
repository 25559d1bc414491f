// Package rediscache provides Redis-backed caching for reference-code
// lookups. Cached entries let repeated notes mentioning the same condition
// or medication skip the NIH round trip entirely.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medextract/medextract/api/internal/pkg/database"
	"github.com/medextract/medextract/api/internal/tool"
)

const keyPrefix = "medextract:lookup"

// LookupCache is a Redis-backed tool.LookupCache with per-entry TTL.
type LookupCache struct {
	db  *database.RedisDB
	ttl time.Duration
}

// NewLookupCache creates a lookup cache over the given Redis connection.
func NewLookupCache(db *database.RedisDB, ttl time.Duration) *LookupCache {
	return &LookupCache{db: db, ttl: ttl}
}

// GetCode implements tool.LookupCache. A missing key is a miss, not an error.
func (c *LookupCache) GetCode(ctx context.Context, vocabulary, term string) (*tool.CachedCode, error) {
	raw, err := c.db.Get(ctx, cacheKey(vocabulary, term))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup cache get: %w", err)
	}

	var code tool.CachedCode
	if err := json.Unmarshal([]byte(raw), &code); err != nil {
		// A corrupt entry behaves like a miss; the live lookup rewrites it.
		return nil, nil
	}
	return &code, nil
}

// PutCode implements tool.LookupCache.
func (c *LookupCache) PutCode(ctx context.Context, vocabulary, term string, code *tool.CachedCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("lookup cache marshal: %w", err)
	}
	if err := c.db.Set(ctx, cacheKey(vocabulary, term), payload, c.ttl); err != nil {
		return fmt.Errorf("lookup cache set: %w", err)
	}
	return nil
}

// Invalidate removes a cached entry, for manual corrections.
func (c *LookupCache) Invalidate(ctx context.Context, vocabulary, term string) error {
	return c.db.Del(ctx, cacheKey(vocabulary, strings.ToLower(term)))
}

func cacheKey(vocabulary, term string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, vocabulary, term)
}
