package httpx

import (
	"net/http"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/service"
)

// ShopHandlers provides HTTP handlers for shop registration.
type ShopHandlers struct {
	Svc *service.ShopService
}

// RegisterShop upserts a shop and its Admin API access token.
func (h *ShopHandlers) RegisterShop(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterShopRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	shop, err := h.Svc.Register(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, shop)
}
