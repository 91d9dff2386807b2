package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCounterUnavailable indicates the shared counter backend is unreachable.
var ErrCounterUnavailable = errors.New("throttle backend unavailable")

// RedisCounter shares failure counts between server instances. Each failure
// refreshes the key's TTL, so counts fade after window of inactivity.
type RedisCounter struct {
	redis  redis.UniversalClient
	window time.Duration
	prefix string
}

func NewRedisCounter(client redis.UniversalClient, window time.Duration) *RedisCounter {
	return &RedisCounter{redis: client, window: window, prefix: "lf:"}
}

func (c *RedisCounter) key(k string) string {
	return c.prefix + k
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.redis.Get(ctx, c.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return n, nil
}

func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	k := c.key(key)
	var incr *redis.IntCmd
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		if c.window > 0 {
			p.Expire(ctx, k, c.window)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return nil
}
