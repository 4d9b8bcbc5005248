package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Boundary(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedis(client, time.Hour, 5)

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "10.0.0.9")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := mr.TTL(keyPrefix + "10.0.0.9")
	assert.True(t, ttl > 0 && ttl <= time.Hour)

	mr.FastForward(time.Hour)
	ok, err = l.Allow(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_DeniedAttemptsDoNotExtendWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedis(client, time.Hour, 1)
	ok, _ := l.Allow(ctx, "ip")
	require.True(t, ok)

	mr.FastForward(30 * time.Minute)
	ok, _ = l.Allow(ctx, "ip")
	assert.False(t, ok)
	assert.LessOrEqual(t, mr.TTL(keyPrefix+"ip"), 30*time.Minute)
}

func TestRedis_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedis(client, time.Minute, 1).Allow(context.Background(), "ip")
	assert.Error(t, err)
}
