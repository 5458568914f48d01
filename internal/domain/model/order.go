package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single Shopify order as consumed by the report builders. Orders
// are read-only snapshots fetched once per job and never persisted. Money
// fields are shop-currency amounts.
type Order struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	CreatedAt         time.Time        `json:"createdAt"`
	CurrencyCode      string           `json:"currencyCode"`
	FinancialStatus   string           `json:"displayFinancialStatus"`
	FulfillmentStatus string           `json:"displayFulfillmentStatus"`
	Customer          Customer         `json:"customer"`
	ShippingAddress   *ShippingAddress `json:"shippingAddress"`
	LineItems         []LineItem       `json:"lineItems"`
}

// Customer identifies the buyer on an order.
type Customer struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// ShippingAddress is the destination recorded on an order. Absent for
// digital or unfulfilled orders.
type ShippingAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// LineItem is one purchased product line on an order.
type LineItem struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	VariantTitle     string            `json:"variantTitle"`
	SKU              string            `json:"sku"`
	Vendor           string            `json:"vendor"`
	Quantity         int               `json:"quantity"`
	UnitPrice        decimal.Decimal   `json:"originalUnitPrice"`
	LineTotal        decimal.Decimal   `json:"discountedTotal"`
	CustomAttributes []CustomAttribute `json:"customAttributes"`
}

// CustomAttribute is one buyer-supplied personalization property on a line
// item. Values may be plain strings or serialized JSON.
type CustomAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
