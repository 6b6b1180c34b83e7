// Package cache implements the Redis-backed resolution cache: geocoded
// address lookups are remembered across snapshots so a gym that keeps
// arriving without coordinates does not re-hit the geocoding service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"

	"gymatlas/pkg/location"
)

// DefaultTTL bounds how long a resolution stays valid. Addresses move rarely;
// a month keeps the cache useful without letting stale positions live forever.
const DefaultTTL = 30 * 24 * time.Hour

const keyPrefix = "geocode:"

// RedisCache stores address resolutions in Redis. It satisfies
// resolve.ResolutionCache.
type RedisCache struct {
	conn *redis.Client
	ttl  time.Duration
}

// NewRedisCache connects to the Redis instance at addr (a redis:// URL) and
// verifies the connection. A zero ttl means DefaultTTL.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{conn: client, ttl: ttl}, nil
}

// GetResolution returns the cached resolution for an address, if any. Cache
// errors are swallowed: a broken cache reads as a miss.
func (rc *RedisCache) GetResolution(ctx context.Context, address string) (*location.Result, bool) {
	value, err := rc.conn.Get(ctx, keyPrefix+address).Result()
	if err != nil {
		return nil, false
	}

	var res location.Result
	if err := json.Unmarshal([]byte(value), &res); err != nil {
		return nil, false
	}
	return &res, true
}

// SetResolution stores a resolution under the address it answered.
func (rc *RedisCache) SetResolution(ctx context.Context, address string, res *location.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling resolution for %q: %w", address, err)
	}
	if err := rc.conn.Set(ctx, keyPrefix+address, string(data), rc.ttl).Err(); err != nil {
		return fmt.Errorf("caching resolution for %q: %w", address, err)
	}
	return nil
}

// Close releases the underlying connection.
func (rc *RedisCache) Close() error {
	if err := rc.conn.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
