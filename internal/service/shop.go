package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgerline/shopreports/internal/core"
	"github.com/ledgerline/shopreports/internal/data"
	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
)

// ShopServiceOptions groups dependencies for ShopService.
type ShopServiceOptions struct {
	Repo   core.ShopRepository // Required: shop repository
	Cache  core.TokenCache     // Optional: access token cache
	Logger *slog.Logger        // Optional: structured logger
}

// ShopService provides business logic for shop registration and credential
// resolution. Access tokens are cached with a read-through to the store; the
// cache is best-effort and never blocks a lookup.
type ShopService struct {
	repo   core.ShopRepository
	cache  core.TokenCache
	logger *slog.Logger
}

// NewShopService constructs a new ShopService.
func NewShopService(opts ShopServiceOptions) (*ShopService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ShopRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "shop_service")
	}

	return &ShopService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		logger: logger,
	}, nil
}

// MustNewShopService constructs a new ShopService and panics on error.
func MustNewShopService(opts ShopServiceOptions) *ShopService {
	svc, err := NewShopService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ShopService: %v", err))
	}
	return svc
}

// Register upserts a shop by domain, replacing its stored access token.
// Any cached token for the shop is invalidated so the next lookup reads
// the fresh credential.
func (s *ShopService) Register(
	ctx context.Context,
	req *model.RegisterShopRequest,
) (*model.Shop, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	shop, err := s.repo.Upsert(ctx, req.Domain, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("register shop %s: %w", req.Domain, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, shop.ID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to invalidate cached shop token",
				"shop_id", shop.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "shop registered", "shop_id", shop.ID, "domain", shop.Domain)
	}

	return shop, nil
}

// Get returns a shop by ID.
func (s *ShopService) Get(ctx context.Context, id string) (*model.Shop, error) {
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrShopNotFound) {
			return nil, apperrors.NotFoundf("shop %s not found", id)
		}
		return nil, fmt.Errorf("get shop %s: %w", id, err)
	}
	return shop, nil
}

// ResolveByDomain returns the shop registered under the given domain.
func (s *ShopService) ResolveByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	if domain == "" {
		return nil, apperrors.Validation("shop domain is required")
	}

	shop, err := s.repo.GetByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, data.ErrShopNotFound) {
			return nil, apperrors.NotFoundf("shop %s is not registered", domain)
		}
		return nil, fmt.Errorf("resolve shop by domain %s: %w", domain, err)
	}
	return shop, nil
}

// ResolveToken returns the shop's access token, consulting the cache first.
// Cache failures degrade to a store read.
func (s *ShopService) ResolveToken(ctx context.Context, shopID string) (string, error) {
	if s.cache != nil {
		token, err := s.cache.Get(ctx, shopID)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.WarnContext(ctx, "shop token cache read failed",
					"shop_id", shopID, "error", err)
			}
		case token != "":
			return token, nil
		}
	}

	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, shopID, shop.AccessToken); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "shop token cache write failed",
				"shop_id", shopID, "error", err)
		}
	}

	return shop.AccessToken, nil
}
