package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopreports/internal/testutil"
)

func TestRedisTokenCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := NewRedisTokenCache(client, 5*time.Minute)
	ctx := context.Background()

	t.Run("miss returns empty", func(t *testing.T) {
		token, err := cache.Get(ctx, "shop-missing")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "shop-1", "shpat_cached"))

		token, err := cache.Get(ctx, "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_cached", token)

		ttl := client.TTL(ctx, "shop_token:shop-1").Val()
		assert.True(t, ttl > 0 && ttl <= 5*time.Minute)
	})

	t.Run("invalidate drops entry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "shop-2", "shpat_stale"))
		require.NoError(t, cache.Invalidate(ctx, "shop-2"))

		token, err := cache.Get(ctx, "shop-2")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("empty shop id rejected", func(t *testing.T) {
		_, err := cache.Get(ctx, "")
		assert.Error(t, err)
		assert.Error(t, cache.Set(ctx, "", "x"))
		assert.Error(t, cache.Invalidate(ctx, ""))
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, cache.Health(ctx))
	})
}

func TestNewRedisTokenCache_DefaultTTL(t *testing.T) {
	cache := NewRedisTokenCache(nil, 0)
	assert.Equal(t, time.Hour, cache.ttl)
}
