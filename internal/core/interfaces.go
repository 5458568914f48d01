package core

import (
	"context"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/shopify"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// ReportJobRepository defines the interface for report job queue and
// artifact data operations.
type ReportJobRepository interface {
	Enqueue(ctx context.Context, shopID string, params model.ReportParams) (*model.ReportJob, error)
	GetByID(ctx context.Context, id string) (*model.ReportJob, error)
	ListByShop(ctx context.Context, shopID string) ([]*model.ReportJob, error)
	ReserveNext(ctx context.Context, leaseSeconds int) (*model.ReportJob, error)
	WaitForNotification(ctx context.Context) error
	CompleteWithArtifacts(ctx context.Context, jobID string, artifacts map[model.ReportFormat][]byte) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	GetArtifact(ctx context.Context, jobID string, format model.ReportFormat) ([]byte, error)
	ArtifactFormats(ctx context.Context, jobID string) ([]model.ReportFormat, error)
	Stats(ctx context.Context) (*model.ReportJobStats, error)
}

// ShopRepository defines the interface for shop data operations.
type ShopRepository interface {
	Upsert(ctx context.Context, domain, accessToken string) (*model.Shop, error)
	GetByID(ctx context.Context, id string) (*model.Shop, error)
	GetByDomain(ctx context.Context, domain string) (*model.Shop, error)
}

// TokenCache caches shop access tokens between jobs. Get returns empty on
// miss; errors are cache transport failures.
type TokenCache interface {
	Get(ctx context.Context, shopID string) (string, error)
	Set(ctx context.Context, shopID, token string) error
	Invalidate(ctx context.Context, shopID string) error
}

// OrderSource fetches the complete order set matching a query from the
// external order API.
type OrderSource interface {
	FetchOrders(
		ctx context.Context,
		shopDomain, accessToken string,
		query shopify.OrderQuery,
	) ([]model.Order, error)
}
