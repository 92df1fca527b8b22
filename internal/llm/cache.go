package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
)

const (
	CacheKeyPrefix  = "ai_response:"
	DefaultCacheTTL = 30 * 24 * time.Hour
	scanBatch       = 500
)

// CachedClient memoizes responses of the wrapped client in Redis. Redis failures are logged and
// treated as misses.
type CachedClient struct {
	next   Client
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedClient(next Client, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedClient{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "ai_cache"}),
	}
}

// CacheKey derives the key from the prompt and the canonical JSON of the context.
func CacheKey(prompt string, ctxData map[string]interface{}) string {
	contextStr := ""
	if len(ctxData) > 0 {
		if b, err := json.Marshal(ctxData); err == nil {
			contextStr = string(b)
		} else {
			contextStr = fmt.Sprint(ctxData)
		}
	}
	sum := sha256.Sum256([]byte(prompt + "|" + contextStr))
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Generate serves accepted cached responses and stores a new response only when the request
// accepts it. Fresh requests always reach the wrapped client.
func (c *CachedClient) Generate(ctx context.Context, req Request) (string, error) {
	key := CacheKey(req.Prompt, req.Context)

	if req.Fresh {
		metrics.LLMCacheLookups.WithLabelValues("bypass").Inc()
	} else if text, ok := c.lookup(ctx, key, req); ok {
		return text, nil
	}

	text, err := c.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if !req.Accepted(text) {
		c.logger.Debug("AI response rejected, not cached", map[string]interface{}{"unit": req.Unit})
		return text, nil
	}
	if err := c.redis.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.logger.Warn("AI cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return text, nil
}

// lookup returns a cached response the request still accepts. Rejected entries are dropped.
func (c *CachedClient) lookup(ctx context.Context, key string, req Request) (string, bool) {
	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		metrics.LLMCacheLookups.WithLabelValues("miss").Inc()
		return "", false
	case err != nil:
		metrics.LLMCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("AI cache read failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}

	if !req.Accepted(cached) {
		metrics.LLMCacheLookups.WithLabelValues("stale").Inc()
		c.logger.Info("Dropping rejected AI cache entry", map[string]interface{}{"unit": req.Unit})
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("AI cache delete failed", map[string]interface{}{"error": err.Error()})
		}
		return "", false
	}
	metrics.LLMCacheLookups.WithLabelValues("hit").Inc()
	c.logger.Debug("AI cache hit", map[string]interface{}{"unit": req.Unit})
	return cached, true
}

// Delete drops the cached response for one prompt/context pair.
func (c *CachedClient) Delete(ctx context.Context, prompt string, ctxData map[string]interface{}) (bool, error) {
	n, err := c.redis.Del(ctx, CacheKey(prompt, ctxData)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every cached response and returns how many keys were deleted.
func (c *CachedClient) Clear(ctx context.Context) (int, error) {
	deleted := 0
	iter := c.redis.Scan(ctx, 0, CacheKeyPrefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.redis.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	c.logger.Info("AI cache cleared", map[string]interface{}{"deleted": deleted})
	return deleted, nil
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Entries int           `json:"entries"`
	TTL     time.Duration `json:"ttl"`
}

func (c *CachedClient) Stats(ctx context.Context) (CacheStats, error) {
	count := 0
	iter := c.redis.Scan(ctx, 0, CacheKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return CacheStats{}, err
	}
	return CacheStats{Entries: count, TTL: c.ttl}, nil
}
