package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopreports/internal/data/cryptoutil"
	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/testutil"
)

func createTestShop(t *testing.T, db *sql.DB, domain string) *model.Shop {
	t.Helper()
	shop, err := NewShopRepo(db, nil).Upsert(context.Background(), domain, "shpat_test")
	require.NoError(t, err)
	return shop
}

func uniqueDomain(prefix string) string {
	return fmt.Sprintf("%s-%d.myshopify.com", prefix, time.Now().UnixNano())
}

func TestShopRepo_Upsert_Get(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewShopRepo(db, nil)
		domain := uniqueDomain("upsert")

		shop, err := repo.Upsert(ctx, domain, "shpat_first")
		require.NoError(t, err)
		require.NotEmpty(t, shop.ID)
		assert.Equal(t, domain, shop.Domain)
		assert.Equal(t, "shpat_first", shop.AccessToken)
		assert.NotZero(t, shop.CreatedAt)

		// re-registering the same domain replaces the token, not the row
		again, err := repo.Upsert(ctx, domain, "shpat_second")
		require.NoError(t, err)
		assert.Equal(t, shop.ID, again.ID)
		assert.Equal(t, "shpat_second", again.AccessToken)

		byID, err := repo.GetByID(ctx, shop.ID)
		require.NoError(t, err)
		assert.Equal(t, domain, byID.Domain)
		assert.Equal(t, "shpat_second", byID.AccessToken)

		byDomain, err := repo.GetByDomain(ctx, domain)
		require.NoError(t, err)
		assert.Equal(t, shop.ID, byDomain.ID)
	})
}

func TestShopRepo_EncryptsTokenAtRest(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		key := make([]byte, 32)
		for i := range key {
			key[i] = byte(i)
		}
		enc, err := cryptoutil.NewAESGCMEncryptor(key)
		require.NoError(t, err)

		repo := NewShopRepo(db, enc)
		domain := uniqueDomain("crypto")

		shop, err := repo.Upsert(ctx, domain, "shpat_plaintext")
		require.NoError(t, err)
		assert.Equal(t, "shpat_plaintext", shop.AccessToken)

		// the stored column holds ciphertext, never the raw token
		var stored string
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT access_token FROM shops WHERE id = $1`, shop.ID).Scan(&stored))
		assert.True(t, strings.HasPrefix(stored, "v1:"), "stored token %q lacks cipher prefix", stored)
		assert.NotContains(t, stored, "shpat_plaintext")

		got, err := repo.GetByDomain(ctx, domain)
		require.NoError(t, err)
		assert.Equal(t, "shpat_plaintext", got.AccessToken)
	})
}

func TestShopRepo_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewShopRepo(db, nil)

		_, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrShopNotFound)

		_, err = repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrShopNotFound)

		_, err = repo.GetByDomain(ctx, "ghost.myshopify.com")
		assert.ErrorIs(t, err, ErrShopNotFound)
	})
}
