package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
	"github.com/ledgerline/shopreports/internal/testutil"
)

// fakeTokenCache is an in-memory TokenCache that can be forced to fail.
type fakeTokenCache struct {
	tokens map[string]string

	getErr error
	setErr error
	gets   int
	sets   int
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{tokens: make(map[string]string)}
}

func (f *fakeTokenCache) Get(_ context.Context, shopID string) (string, error) {
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.tokens[shopID], nil
}

func (f *fakeTokenCache) Set(_ context.Context, shopID, token string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.tokens[shopID] = token
	return nil
}

func (f *fakeTokenCache) Invalidate(_ context.Context, shopID string) error {
	delete(f.tokens, shopID)
	return nil
}

func TestNewShopService(t *testing.T) {
	_, err := NewShopService(ShopServiceOptions{})
	assert.Error(t, err)

	svc, err := NewShopService(ShopServiceOptions{Repo: newFakeShopRepo()})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestShopService_Register(t *testing.T) {
	t.Run("registers new shop", func(t *testing.T) {
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo()})

		shop, err := svc.Register(context.Background(), testutil.ShopRequest("example.myshopify.com"))
		require.NoError(t, err)
		assert.Equal(t, "example.myshopify.com", shop.Domain)
		assert.NotEmpty(t, shop.ID)
	})

	t.Run("re-register replaces token and drops cache entry", func(t *testing.T) {
		repo := newFakeShopRepo(testShop())
		cache := newFakeTokenCache()
		cache.tokens["shop-1"] = "shpat_stale"
		svc := MustNewShopService(ShopServiceOptions{Repo: repo, Cache: cache})

		shop, err := svc.Register(context.Background(), &model.RegisterShopRequest{
			Domain:      "example.myshopify.com",
			AccessToken: "shpat_fresh",
		})
		require.NoError(t, err)
		assert.Equal(t, "shop-1", shop.ID)
		assert.Equal(t, "shpat_fresh", shop.AccessToken)
		assert.Empty(t, cache.tokens["shop-1"])
	})

	t.Run("invalid request rejected", func(t *testing.T) {
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo()})

		_, err := svc.Register(context.Background(), &model.RegisterShopRequest{Domain: "x"})
		assert.True(t, apperrors.IsValidation(err))

		_, err = svc.Register(context.Background(), nil)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestShopService_ResolveByDomain(t *testing.T) {
	svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(testShop())})

	shop, err := svc.ResolveByDomain(context.Background(), "example.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", shop.ID)

	_, err = svc.ResolveByDomain(context.Background(), "ghost.myshopify.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.ResolveByDomain(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestShopService_ResolveToken(t *testing.T) {
	t.Run("cache hit skips store", func(t *testing.T) {
		cache := newFakeTokenCache()
		cache.tokens["shop-1"] = "shpat_cached"
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(), Cache: cache})

		token, err := svc.ResolveToken(context.Background(), "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_cached", token)
	})

	t.Run("cache miss reads store and backfills", func(t *testing.T) {
		cache := newFakeTokenCache()
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(testShop()), Cache: cache})

		token, err := svc.ResolveToken(context.Background(), "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_secret", token)
		assert.Equal(t, "shpat_secret", cache.tokens["shop-1"])
	})

	t.Run("cache read failure degrades to store", func(t *testing.T) {
		cache := newFakeTokenCache()
		cache.getErr = errors.New("redis down")
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(testShop()), Cache: cache})

		token, err := svc.ResolveToken(context.Background(), "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_secret", token)
	})

	t.Run("cache write failure does not fail lookup", func(t *testing.T) {
		cache := newFakeTokenCache()
		cache.setErr = errors.New("redis down")
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(testShop()), Cache: cache})

		token, err := svc.ResolveToken(context.Background(), "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_secret", token)
	})

	t.Run("unknown shop yields not found", func(t *testing.T) {
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo()})

		_, err := svc.ResolveToken(context.Background(), "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("no cache configured", func(t *testing.T) {
		svc := MustNewShopService(ShopServiceOptions{Repo: newFakeShopRepo(testShop())})

		token, err := svc.ResolveToken(context.Background(), "shop-1")
		require.NoError(t, err)
		assert.Equal(t, "shpat_secret", token)
	})
}
