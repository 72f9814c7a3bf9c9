// internal/engine/cache.go
package engine

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/models"
)

// DedupCache is the advisory redis fast path in front of the ledger's unique
// constraint. It only ever saves a database round trip: a miss, a redis
// outage or a nil cache all fall through to the authoritative ledger check,
// so correctness never depends on it.
type DedupCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

// NewDedupCache wraps redis for dedup lookups. A nil client yields a cache
// that answers "not seen" to everything, which lets deployments run without
// redis.
func NewDedupCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *DedupCache {
	return &DedupCache{redis: redis, ttl: ttl, logger: log}
}

func dedupKey(recipientID string, category models.Category, uniqueID string) string {
	return fmt.Sprintf("notif:dedup:%s:%s:%s", recipientID, category, uniqueID)
}

// Seen reports whether the key was recently marked handled. Errors are
// logged and treated as a miss.
func (c *DedupCache) Seen(ctx context.Context, key string) bool {
	if c == nil || c.redis == nil {
		return false
	}
	found, err := c.redis.Exists(ctx, key)
	if err != nil {
		c.logger.Warn("dedup cache lookup failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return found
}

// MarkSeen records the key as handled for the configured TTL. Best effort.
func (c *DedupCache) MarkSeen(ctx context.Context, key string) {
	if c == nil || c.redis == nil {
		return
	}
	if _, err := c.redis.SetNX(ctx, key, 1, c.ttl); err != nil {
		c.logger.Warn("dedup cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
