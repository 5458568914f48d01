package httpx

import (
	"context"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// shopKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type shopKey struct{}

// withShop returns a child context that carries the resolved shop.
// If shop is nil, the original ctx is returned unchanged.
func withShop(ctx context.Context, shop *model.Shop) context.Context {
	if shop == nil {
		return ctx
	}
	return context.WithValue(ctx, shopKey{}, shop)
}

// ShopFromContext returns the shop resolved by the RequireShop middleware
// and a boolean indicating presence.
func ShopFromContext(ctx context.Context) (*model.Shop, bool) {
	if shop, ok := ctx.Value(shopKey{}).(*model.Shop); ok && shop != nil {
		return shop, true
	}
	return nil, false
}
