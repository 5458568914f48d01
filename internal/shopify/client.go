// Package shopify fetches orders from the Shopify Admin GraphQL API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
)

// ordersPageSize is the stable page size used for order pagination. Nested
// line items use 250, the connection page cap.
const ordersPageSize = 50

const ordersQuery = `
query getOrders($first: Int!, $after: String, $query: String!) {
  orders(first: $first, after: $after, query: $query) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        name
        createdAt
        currencyCode
        displayFinancialStatus
        displayFulfillmentStatus
        customer {
          displayName
          email
        }
        shippingAddress {
          name
          address1
          address2
          city
          province
          zip
          country
        }
        lineItems(first: 250) {
          edges {
            node {
              id
              title
              variantTitle
              sku
              quantity
              vendor
              originalUnitPriceSet {
                shopMoney {
                  amount
                }
              }
              discountedTotalSet {
                shopMoney {
                  amount
                }
              }
              customAttributes {
                key
                value
              }
            }
          }
        }
      }
    }
  }
}`

// Config controls the Admin API client.
type Config struct {
	// APIVersion selects the Admin API version path segment.
	APIVersion string
	// Timeout bounds a single page request.
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// EndpointOverride replaces the per-shop Admin API URL entirely.
	// Used by tests to point at a local server.
	EndpointOverride string
}

// Client pages through the orders connection of a shop's Admin API.
type Client struct {
	apiVersion string
	endpoint   string
	client     *http.Client
	logger     *slog.Logger
}

// OrderQuery is the filter set for one fetch.
type OrderQuery struct {
	// StartDate and EndDate are inclusive ISO calendar dates.
	StartDate string
	EndDate   string
	// FinancialStatus values are OR-combined; empty or containing "any"
	// skips the filter.
	FinancialStatus []string
	// FulfillmentStatus, when set, adds an equality filter.
	FulfillmentStatus *string
}

// NewClient creates a Shopify Admin API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-10"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiVersion: apiVersion,
		endpoint:   cfg.EndpointOverride,
		client:     hc,
		logger:     logger,
	}
}

// FetchOrders returns all orders matching the query, with nested line items,
// accumulated across however many pages the API reports. Filtering is
// delegated entirely to the search expression; no client-side filtering.
func (c *Client) FetchOrders(
	ctx context.Context,
	shopDomain, accessToken string,
	query OrderQuery,
) ([]model.Order, error) {
	search := buildSearchQuery(query)
	c.logger.Debug("fetching orders", "shop", shopDomain, "query", search)

	var (
		all    []model.Order
		cursor *string
	)
	for {
		page, err := c.fetchPage(ctx, shopDomain, accessToken, search, cursor)
		if err != nil {
			return nil, err
		}
		for _, edge := range page.Edges {
			all = append(all, edge.Node.toModel())
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		cursor = &page.PageInfo.EndCursor
	}

	c.logger.Debug("fetched orders", "shop", shopDomain, "count", len(all))
	return all, nil
}

// buildSearchQuery combines the closed date range with the optional status
// filters into a Shopify search expression.
func buildSearchQuery(q OrderQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "created_at:>='%s' AND created_at:<='%s'",
		model.DatePart(q.StartDate), model.DatePart(q.EndDate))

	if len(q.FinancialStatus) > 0 && !containsAny(q.FinancialStatus) {
		clauses := make([]string, len(q.FinancialStatus))
		for i, s := range q.FinancialStatus {
			clauses[i] = "financial_status:" + strings.ToUpper(s)
		}
		fmt.Fprintf(&b, " AND (%s)", strings.Join(clauses, " OR "))
	}
	if q.FulfillmentStatus != nil && *q.FulfillmentStatus != "" {
		fmt.Fprintf(&b, " AND fulfillment_status:%s", strings.ToUpper(*q.FulfillmentStatus))
	}
	return b.String()
}

func containsAny(statuses []string) bool {
	for _, s := range statuses {
		if strings.EqualFold(s, "any") {
			return true
		}
	}
	return false
}

func (c *Client) fetchPage(
	ctx context.Context,
	shopDomain, accessToken, search string,
	cursor *string,
) (*ordersConnection, error) {
	reqBody, err := json.Marshal(graphqlRequest{
		Query: ordersQuery,
		Variables: map[string]any{
			"first": ordersPageSize,
			"after": cursor,
			"query": search,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	endpoint := c.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.apiVersion)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "shopify request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "read shopify response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Upstreamf("shopify %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded graphqlResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode shopify response")
	}
	if len(decoded.Errors) > 0 {
		return nil, apperrors.Upstreamf("shopify graphql error: %s", decoded.Errors[0].Message)
	}
	// A well-formed response always carries an orders payload; its absence
	// means the query was rejected or the shape changed, so fail the fetch.
	if decoded.Data == nil || decoded.Data.Orders == nil {
		return nil, apperrors.Upstream("shopify response missing orders payload")
	}
	return decoded.Data.Orders, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data *struct {
		Orders *ordersConnection `json:"orders"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type ordersConnection struct {
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
	Edges []struct {
		Node orderNode `json:"node"`
	} `json:"edges"`
}

type orderNode struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	CreatedAt                time.Time `json:"createdAt"`
	CurrencyCode             string    `json:"currencyCode"`
	DisplayFinancialStatus   string    `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string    `json:"displayFulfillmentStatus"`
	Customer                 *struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"customer"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress"`
	LineItems       struct {
		Edges []struct {
			Node lineItemNode `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type lineItemNode struct {
	ID                   string                  `json:"id"`
	Title                string                  `json:"title"`
	VariantTitle         string                  `json:"variantTitle"`
	SKU                  string                  `json:"sku"`
	Quantity             int                     `json:"quantity"`
	Vendor               string                  `json:"vendor"`
	OriginalUnitPriceSet moneySet                `json:"originalUnitPriceSet"`
	DiscountedTotalSet   moneySet                `json:"discountedTotalSet"`
	CustomAttributes     []model.CustomAttribute `json:"customAttributes"`
}

type moneySet struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

func (m moneySet) amount() decimal.Decimal {
	d, err := decimal.NewFromString(m.ShopMoney.Amount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (n orderNode) toModel() model.Order {
	order := model.Order{
		ID:                n.ID,
		Name:              n.Name,
		CreatedAt:         n.CreatedAt,
		CurrencyCode:      n.CurrencyCode,
		FinancialStatus:   n.DisplayFinancialStatus,
		FulfillmentStatus: n.DisplayFulfillmentStatus,
		ShippingAddress:   n.ShippingAddress,
	}
	if n.Customer != nil {
		order.Customer = model.Customer{
			DisplayName: n.Customer.DisplayName,
			Email:       n.Customer.Email,
		}
	}
	for _, edge := range n.LineItems.Edges {
		li := edge.Node
		order.LineItems = append(order.LineItems, model.LineItem{
			ID:               li.ID,
			Title:            li.Title,
			VariantTitle:     li.VariantTitle,
			SKU:              li.SKU,
			Vendor:           li.Vendor,
			Quantity:         li.Quantity,
			UnitPrice:        li.OriginalUnitPriceSet.amount(),
			LineTotal:        li.DiscountedTotalSet.amount(),
			CustomAttributes: li.CustomAttributes,
		})
	}
	return order
}
