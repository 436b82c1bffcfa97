package timezone

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "sendtime:tz:"
	defaultRedisTTL     = 24 * time.Hour
	defaultRedisTimeout = 50 * time.Millisecond
)

// RedisCache shares resolved timezones between server and worker processes.
// Every call is bounded by a short timeout; Redis errors degrade to a cache
// miss so scheduling never blocks on the network.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisCache creates a Redis-backed cache. Zero ttl/timeout use defaults.
func NewRedisCache(client *redis.Client, ttl, timeout time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisCache{
		client:  client,
		prefix:  defaultRedisPrefix,
		ttl:     ttl,
		timeout: timeout,
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tz, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Debug("timezone cache get failed", "key", key, "error", err)
		return "", false
	}
	return tz, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, tz string) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, tz, c.ttl).Err(); err != nil {
		logger.Debug("timezone cache set failed", "key", key, "error", err)
	}
}

// Clear implements Cache. It removes only keys under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("scan timezone cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear timezone cache: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
