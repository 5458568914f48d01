package model

import (
	"errors"
	"strings"
	"time"
)

// Shop is a registered merchant store. AccessToken is the Admin API token
// used for that shop's order queries; it never appears in JSON output.
type Shop struct {
	ID          string    `json:"id"         db:"id"`
	Domain      string    `json:"domain"     db:"domain"`
	AccessToken string    `json:"-"          db:"access_token"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RegisterShopRequest represents a request to register or update a shop.
type RegisterShopRequest struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
}

// Validate validates the RegisterShopRequest fields.
func (r *RegisterShopRequest) Validate() error {
	if strings.TrimSpace(r.Domain) == "" {
		return errors.New("domain is required")
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		return errors.New("access token is required")
	}
	return nil
}
