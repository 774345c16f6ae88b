package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces cooldown keys in a shared Redis.
const DefaultKeyPrefix = "ecobin:cooldown:"

// RedisStore keeps cooldowns as expiring keys so several API replicas share
// one window and the window survives a service restart. The caller's now is
// ignored; expiry is measured by the Redis server.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore wraps an open client.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis creates a client and pings it to validate the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return c, nil
}

func (r *RedisStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	k := r.prefix + key

	// Two rounds cover a key that expires between SETNX and PTTL.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := r.client.SetNX(ctx, k, now.UnixMilli(), window).Result()
		if err != nil {
			return false, 0, err
		}
		if ok {
			return true, 0, nil
		}

		ttl, err := r.client.PTTL(ctx, k).Result()
		if err != nil {
			return false, 0, err
		}
		switch {
		case ttl > 0:
			return false, min(ttl, window), nil
		case ttl == -1:
			// Key without expiry, written by something else; reclaim it.
			if err := r.client.PExpire(ctx, k, window).Err(); err != nil {
				return false, 0, err
			}
			return false, window, nil
		}
	}
	return false, window, nil
}
