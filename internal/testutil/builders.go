// Package testutil provides testing utilities and helpers for the shopreports job system.
package testutil

import (
	"fmt"
	"time"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/shopspring/decimal"
)

// ReportJobRequestBuilder provides a fluent interface for building CreateReportJobRequest objects for testing.
type ReportJobRequestBuilder struct {
	req *model.CreateReportJobRequest
}

// NewReportJobRequest creates a new ReportJobRequestBuilder with sensible defaults.
func NewReportJobRequest(shopID string) *ReportJobRequestBuilder {
	return &ReportJobRequestBuilder{
		req: &model.CreateReportJobRequest{
			ShopID: shopID,
			Params: model.ReportParams{
				StartDate:  "2024-01-01",
				EndDate:    "2024-01-31",
				ReportType: model.ReportTypeStandard,
			},
		},
	}
}

// WithReportType sets the report type.
func (b *ReportJobRequestBuilder) WithReportType(reportType model.ReportType) *ReportJobRequestBuilder {
	b.req.Params.ReportType = reportType
	return b
}

// WithDateRange sets the inclusive start and end dates.
func (b *ReportJobRequestBuilder) WithDateRange(start, end string) *ReportJobRequestBuilder {
	b.req.Params.StartDate = start
	b.req.Params.EndDate = end
	return b
}

// WithFinancialStatus sets the financial status filter.
func (b *ReportJobRequestBuilder) WithFinancialStatus(statuses ...string) *ReportJobRequestBuilder {
	b.req.Params.FinancialStatus = statuses
	return b
}

// WithFulfillmentStatus sets the fulfillment status filter.
func (b *ReportJobRequestBuilder) WithFulfillmentStatus(status string) *ReportJobRequestBuilder {
	b.req.Params.FulfillmentStatus = &status
	return b
}

// Build returns the constructed CreateReportJobRequest.
func (b *ReportJobRequestBuilder) Build() *model.CreateReportJobRequest {
	return b.req
}

// ShopRequest creates a RegisterShopRequest with the given domain and a test token.
func ShopRequest(domain string) *model.RegisterShopRequest {
	return &model.RegisterShopRequest{
		Domain:      domain,
		AccessToken: "shpat_test_token",
	}
}

// OrderBuilder provides a fluent interface for building Order fixtures for report tests.
type OrderBuilder struct {
	order model.Order
}

// NewOrder creates a new OrderBuilder with sensible defaults.
func NewOrder(name string) *OrderBuilder {
	return &OrderBuilder{
		order: model.Order{
			ID:                "gid://shopify/Order/" + name,
			Name:              name,
			CreatedAt:         time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			CurrencyCode:      "USD",
			FinancialStatus:   "PAID",
			FulfillmentStatus: "UNFULFILLED",
			Customer: model.Customer{
				DisplayName: "Test Customer",
				Email:       "customer@example.com",
			},
		},
	}
}

// CreatedAt sets the order creation time.
func (b *OrderBuilder) CreatedAt(t time.Time) *OrderBuilder {
	b.order.CreatedAt = t
	return b
}

// Customer sets the buyer on the order.
func (b *OrderBuilder) Customer(displayName, email string) *OrderBuilder {
	b.order.Customer = model.Customer{DisplayName: displayName, Email: email}
	return b
}

// ShippingTo sets a shipping address on the order.
func (b *OrderBuilder) ShippingTo(addr model.ShippingAddress) *OrderBuilder {
	b.order.ShippingAddress = &addr
	return b
}

// LineItem appends a purchased line with the given title, quantity and unit price.
// The line total is quantity * unit price.
func (b *OrderBuilder) LineItem(title string, quantity int, unitPrice string) *OrderBuilder {
	price := decimal.RequireFromString(unitPrice)
	b.order.LineItems = append(b.order.LineItems, model.LineItem{
		ID:        fmt.Sprintf("gid://shopify/LineItem/%s-%d", b.order.Name, len(b.order.LineItems)+1),
		Title:     title,
		Quantity:  quantity,
		UnitPrice: price,
		LineTotal: price.Mul(decimal.NewFromInt(int64(quantity))),
	})
	return b
}

// LineItemFull appends a fully specified purchased line.
func (b *OrderBuilder) LineItemFull(item model.LineItem) *OrderBuilder {
	b.order.LineItems = append(b.order.LineItems, item)
	return b
}

// Attributes sets custom attributes on the most recently added line item.
func (b *OrderBuilder) Attributes(attrs ...model.CustomAttribute) *OrderBuilder {
	if n := len(b.order.LineItems); n > 0 {
		b.order.LineItems[n-1].CustomAttributes = attrs
	}
	return b
}

// Build returns the constructed Order.
func (b *OrderBuilder) Build() model.Order {
	return b.order
}

// Attr is shorthand for a plain string custom attribute.
func Attr(key, value string) model.CustomAttribute {
	return model.CustomAttribute{Key: key, Value: value}
}
