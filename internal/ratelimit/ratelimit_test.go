package ratelimit

import (
	"context"
	"testing"
	"time"

	"prepx/internal/config"
	"prepx/internal/observability"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := New(client, "test", limit, time.Minute, observability.NewNopLogger())
	l.now = func() time.Time { return time.Date(2024, 3, 13, 10, 30, 15, 0, time.UTC) }
	return l, mr
}

func TestAllow_EnforcesLimit(t *testing.T) {
	l, mr := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Equal(t, 45*time.Second, d.RetryAfter)

	// other users have their own counter
	d, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	key := "test:user:1:" + "1710325800"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestAllow_NewWindowResets(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	d, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	l.now = func() time.Time { return time.Date(2024, 3, 13, 10, 31, 1, 0, time.UTC) }
	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAllow_FailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	mr.Close()

	d, err := l.Allow(context.Background(), "user:1")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestNewFromConfig_Disabled(t *testing.T) {
	l, client, err := NewFromConfig(config.RateLimitConfig{}, observability.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.Nil(t, client)

	_, _, err = NewFromConfig(config.RateLimitConfig{RedisURL: "::not a url", AttemptsPerMinute: 5}, observability.NewNopLogger())
	assert.Error(t, err)
}
