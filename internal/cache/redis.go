// Package cache provides a Redis-backed cache for fetched design screen
// metadata. A cached screen skips the Zeplin round trips entirely; the
// reference image is always re-downloaded because layer metadata is
// small and images are not.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jordan/design-validator/internal/types"
)

// DefaultTTL bounds how long screen metadata is served from cache. A
// design update in Zeplin becomes visible after at most this long.
const DefaultTTL = 15 * time.Minute

// ScreenCache caches design screens in Redis. It satisfies
// zeplin.ScreenCache.
type ScreenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*ScreenCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &ScreenCache{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection.
func (c *ScreenCache) Close() error {
	return c.client.Close()
}

func screenKey(projectID, screenID string) string {
	return fmt.Sprintf("screen:%s:%s", projectID, screenID)
}

// Get returns the cached screen, if any. Cache errors are logged and
// treated as misses; the caller falls through to the API.
func (c *ScreenCache) Get(ctx context.Context, projectID, screenID string) (*types.DesignScreen, bool) {
	data, err := c.client.Get(ctx, screenKey(projectID, screenID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get failed for %s/%s: %v", projectID, screenID, err)
		}
		return nil, false
	}

	var screen types.DesignScreen
	if err := json.Unmarshal(data, &screen); err != nil {
		log.Printf("[cache] corrupt entry for %s/%s: %v", projectID, screenID, err)
		return nil, false
	}
	return &screen, true
}

// Set stores the screen metadata. Failures are logged and ignored; a
// cold cache only costs an extra API round trip.
func (c *ScreenCache) Set(ctx context.Context, projectID, screenID string, screen *types.DesignScreen) {
	data, err := json.Marshal(screen)
	if err != nil {
		log.Printf("[cache] marshal failed for %s/%s: %v", projectID, screenID, err)
		return
	}
	if err := c.client.Set(ctx, screenKey(projectID, screenID), data, c.ttl).Err(); err != nil {
		log.Printf("[cache] set failed for %s/%s: %v", projectID, screenID, err)
	}
}
