package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCounter(t *testing.T, window time.Duration) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounter(client, window), mr
}

func TestRedisCounter_IncrGetReset(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCounter(t, time.Minute)

	n, err := c.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	for i := 1; i <= 3; i++ {
		n, err = c.Incr(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	assert.True(t, mr.Exists("lf:a@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("lf:a@example.com"))

	n, err = c.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, c.Reset(ctx, "a@example.com"))
	assert.False(t, mr.Exists("lf:a@example.com"))
}

func TestRedisCounter_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCounter(t, time.Minute)

	_, err := c.Incr(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	n, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRedisCounter_SharedBetweenThrottles(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCounter(t, time.Minute)
	s := &fakeSleeper{}
	a := New(c, 2, time.Second, WithSleeper(s.Sleep))
	b := New(c, 2, time.Second, WithSleeper(s.Sleep))

	require.NoError(t, a.RecordFailure(ctx, "x"))
	require.NoError(t, b.RecordFailure(ctx, "x"))
	require.NoError(t, a.CheckAndMaybeDelay(ctx, "x"))
	assert.Equal(t, 1, s.count())
}

func TestRedisCounter_Unavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCounter(t, time.Minute)
	mr.Close()

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCounterUnavailable)
	_, err = c.Incr(ctx, "k")
	require.ErrorIs(t, err, ErrCounterUnavailable)
	require.ErrorIs(t, c.Reset(ctx, "k"), ErrCounterUnavailable)
}
