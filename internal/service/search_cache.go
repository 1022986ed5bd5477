package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/observability"
)

const (
	defaultSearchCacheTTL    = 5 * time.Minute
	defaultSearchCachePrefix = "activity:search"
)

// SearchCache keeps archive search results in Redis. Archive partitions only
// change during archival, which invalidates the partitions it wrote to.
// A nil *SearchCache disables caching.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewSearchCache returns nil when client is nil.
func NewSearchCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SearchCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSearchCacheTTL
	}
	return &SearchCache{
		client: client,
		ttl:    ttl,
		prefix: defaultSearchCachePrefix,
		logger: logger.With().Str("component", "search_cache").Logger(),
	}
}

func (c *SearchCache) key(collection string, req dto.ActivitySearchRequest) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s:%s", c.prefix, collection, hex.EncodeToString(sum[:]))
}

// Get returns a cached result for collection and req.
func (c *SearchCache) Get(ctx context.Context, collection string, req dto.ActivitySearchRequest) (dto.ActivitySearchResult, bool) {
	if c == nil {
		return dto.ActivitySearchResult{}, false
	}
	key := c.key(collection, req)
	if key == "" {
		return dto.ActivitySearchResult{}, false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil || cached == "" {
		observability.SearchCache().WithLabelValues("miss").Inc()
		return dto.ActivitySearchResult{}, false
	}

	var result dto.ActivitySearchResult
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		observability.SearchCache().WithLabelValues("miss").Inc()
		return dto.ActivitySearchResult{}, false
	}
	observability.SearchCache().WithLabelValues("hit").Inc()
	return result, true
}

// Set stores result. Failures are logged and otherwise ignored.
func (c *SearchCache) Set(ctx context.Context, collection string, req dto.ActivitySearchRequest, result dto.ActivitySearchResult) {
	if c == nil {
		return
	}
	key := c.key(collection, req)
	if key == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("collection", collection).Msg("failed to cache search result")
	}
}

// Invalidate drops every cached result for collection.
func (c *SearchCache) Invalidate(ctx context.Context, collection string) error {
	if c == nil {
		return nil
	}

	pattern := fmt.Sprintf("%s:%s:*", c.prefix, collection)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
