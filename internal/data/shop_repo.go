package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerline/shopreports/internal/data/cryptoutil"
	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
)

// ErrShopNotFound is returned when a shop is not found.
var ErrShopNotFound = errors.New("shop not found")

const shopColumns = `id, domain, access_token, created_at, updated_at`

// ShopRepo provides database operations for registered shops. Access tokens
// are encrypted at rest through the configured Encryptor.
type ShopRepo struct {
	DB        *sql.DB
	encryptor cryptoutil.Encryptor
}

// NewShopRepo creates a new ShopRepo instance. A nil encryptor stores tokens
// with the noop marker.
func NewShopRepo(db *sql.DB, encryptor cryptoutil.Encryptor) *ShopRepo {
	if encryptor == nil {
		encryptor = cryptoutil.NoopEncryptor{}
	}
	return &ShopRepo{DB: db, encryptor: encryptor}
}

// Upsert registers a shop or refreshes its access token.
func (r *ShopRepo) Upsert(ctx context.Context, domain, accessToken string) (*model.Shop, error) {
	sealed, err := r.encryptor.Encrypt([]byte(accessToken))
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO shops (domain, access_token)
		VALUES ($1, $2)
		ON CONFLICT (domain) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    updated_at = now()
		RETURNING `+shopColumns, domain, sealed)

	shop, err := r.scanShop(row)
	if err != nil {
		return nil, fmt.Errorf("upsert shop: %w", apperrors.MapDBError(err))
	}
	return shop, nil
}

// GetByID retrieves a shop by its ID. Malformed ids report not-found rather
// than surfacing a cast error from Postgres.
func (r *ShopRepo) GetByID(ctx context.Context, id string) (*model.Shop, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrShopNotFound
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+shopColumns+` FROM shops WHERE id = $1
	`, id)
	shop, err := r.scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", apperrors.MapDBError(err))
	}
	return shop, nil
}

// GetByDomain retrieves a shop by its myshopify domain.
func (r *ShopRepo) GetByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+shopColumns+` FROM shops WHERE domain = $1
	`, domain)
	shop, err := r.scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop by domain: %w", apperrors.MapDBError(err))
	}
	return shop, nil
}

type shopScanner interface {
	Scan(dest ...any) error
}

func (r *ShopRepo) scanShop(scanner shopScanner) (*model.Shop, error) {
	var (
		shop   model.Shop
		sealed string
	)
	if err := scanner.Scan(
		&shop.ID,
		&shop.Domain,
		&sealed,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	); err != nil {
		return nil, err
	}

	token, err := r.encryptor.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	shop.AccessToken = string(token)
	return &shop, nil
}
