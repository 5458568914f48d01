package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterShopRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterShopRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  RegisterShopRequest{Domain: "example.myshopify.com", AccessToken: "shpat_abc"},
		},
		{
			name:    "missing domain",
			req:     RegisterShopRequest{AccessToken: "shpat_abc"},
			wantErr: "domain is required",
		},
		{
			name:    "blank token",
			req:     RegisterShopRequest{Domain: "example.myshopify.com", AccessToken: "   "},
			wantErr: "access token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestShop_TokenNeverSerialized(t *testing.T) {
	shop := Shop{ID: "shop-1", Domain: "example.myshopify.com", AccessToken: "shpat_secret"}
	raw, err := json.Marshal(shop)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "shpat_secret")
	assert.Contains(t, string(raw), "example.myshopify.com")
}
