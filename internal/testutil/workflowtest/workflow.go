// Package workflowtest provides end-to-end testing utilities for the
// shopreports job pipeline: shop registration, job creation, order fetch
// against a fake Admin API, rendering, and artifact retrieval.
package workflowtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/ledgerline/shopreports/internal/adapters/reportrunner"
	"github.com/ledgerline/shopreports/internal/core"
	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/service"
	"github.com/ledgerline/shopreports/internal/shopify"
	"github.com/ledgerline/shopreports/internal/testutil"
)

// RepositoryProvider supplies concrete repositories to the harness.
// Callers provide their own implementations to avoid import cycles.
type RepositoryProvider interface {
	ReportJobRepository() core.ReportJobRepository
	ShopRepository() core.ShopRepository
}

// WorkflowTestHarness wires repositories, services, a fake Shopify Admin
// API, and a report runner for end-to-end pipeline tests.
//
//nolint:revive // WorkflowTestHarness is intentionally verbose for clarity in test code.
type WorkflowTestHarness struct {
	t  testutil.TestingTB
	db *sql.DB

	admin *fakeAdminAPI

	JobRepo  core.ReportJobRepository
	ShopRepo core.ShopRepository

	ShopSvc *service.ShopService
	JobSvc  *service.ReportJobService

	PDF *StubPDFEngine
}

// WorkflowTestOptions configures the workflow test harness.
//
//nolint:revive // WorkflowTestOptions is intentionally verbose for clarity in test code.
type WorkflowTestOptions struct {
	// PageSize controls how many orders the fake Admin API returns per page.
	PageSize int
	// RepositoryProvider provides repositories (required to avoid import cycles)
	RepositoryProvider RepositoryProvider
}

// NewWorkflowTestHarness creates a new workflow test harness with all components wired up.
func NewWorkflowTestHarness(t testutil.TestingTB, db *sql.DB, opts WorkflowTestOptions) *WorkflowTestHarness {
	t.Helper()

	if opts.RepositoryProvider == nil {
		t.Fatalf("RepositoryProvider is required to avoid import cycles")
	}
	if opts.PageSize == 0 {
		opts.PageSize = 50
	}

	h := &WorkflowTestHarness{
		t:   t,
		db:  db,
		PDF: &StubPDFEngine{},
	}

	h.JobRepo = opts.RepositoryProvider.ReportJobRepository()
	h.ShopRepo = opts.RepositoryProvider.ShopRepository()

	h.ShopSvc = service.MustNewShopService(service.ShopServiceOptions{
		Repo:   h.ShopRepo,
		Logger: slog.Default(),
	})
	h.JobSvc = service.MustNewReportJobService(service.ReportJobServiceOptions{
		Repo:   h.JobRepo,
		Shops:  h.ShopRepo,
		Logger: slog.Default(),
	})

	h.admin = newFakeAdminAPI(opts.PageSize)
	h.admin.start()

	return h
}

// Close cleans up all resources.
func (h *WorkflowTestHarness) Close() {
	h.t.Helper()

	if h.admin != nil {
		h.admin.stop()
	}
}

// AdminAPIURL returns the endpoint of the fake Admin API server.
func (h *WorkflowTestHarness) AdminAPIURL() string {
	return h.admin.url()
}

// SetOrders replaces the order set served by the fake Admin API.
func (h *WorkflowTestHarness) SetOrders(orders []model.Order) {
	h.admin.setOrders(orders)
}

// RequestCount returns how many GraphQL page requests the fake Admin API served.
func (h *WorkflowTestHarness) RequestCount() int {
	return h.admin.requestCount()
}

// RegisterShop registers a shop and fails the test on error.
func (h *WorkflowTestHarness) RegisterShop(domain string) *model.Shop {
	h.t.Helper()

	shop, err := h.ShopSvc.Register(context.Background(), testutil.ShopRequest(domain))
	if err != nil {
		h.t.Fatalf("register shop %s: %v", domain, err)
	}
	return shop
}

// CreateJob enqueues a report job and fails the test on error.
func (h *WorkflowTestHarness) CreateJob(req *model.CreateReportJobRequest) *model.ReportJob {
	h.t.Helper()

	job, err := h.JobSvc.Create(context.Background(), req)
	if err != nil {
		h.t.Fatalf("create report job: %v", err)
	}
	return job
}

// NewRunner builds a report runner wired to the fake Admin API and stub PDF engine.
func (h *WorkflowTestHarness) NewRunner() *reportrunner.Runner {
	h.t.Helper()

	orders := shopify.NewClient(shopify.Config{
		EndpointOverride: h.admin.url(),
		Timeout:          5 * time.Second,
	}, slog.Default())

	runner, err := reportrunner.NewRunner(reportrunner.RunnerOptions{
		Logger:       slog.Default(),
		Concurrency:  1,
		PollInterval: 100 * time.Millisecond,
		Orders:       orders,
		PDF:          h.PDF,
		JobsRepo:     h.JobRepo,
		ShopsRepo:    h.ShopRepo,
	})
	if err != nil {
		h.t.Fatalf("build report runner: %v", err)
	}
	return runner
}

// RunJobToCompletion starts a runner, waits for the job to reach a terminal
// status, then stops the runner and returns the final job row.
func (h *WorkflowTestHarness) RunJobToCompletion(jobID string, timeout time.Duration) *model.ReportJob {
	h.t.Helper()

	runner := h.NewRunner()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			h.t.Logf("runner exited with error: %v", err)
		}
	}()

	job := h.waitForTerminal(jobID, timeout)
	cancel()
	<-done
	return job
}

func (h *WorkflowTestHarness) waitForTerminal(jobID string, timeout time.Duration) *model.ReportJob {
	h.t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		job, err := h.JobRepo.GetByID(context.Background(), jobID)
		if err != nil {
			h.t.Fatalf("poll job %s: %v", jobID, err)
		}
		if job.Status.Terminal() {
			return job
		}
		if time.Now().After(deadline) {
			for _, row := range testutil.InspectReportJobStates(h.t, h.db) {
				h.t.Logf("job state: id=%s status=%s", row.ID, row.Status)
			}
			h.t.Fatalf("job %s did not finish within %s (status %s)", jobID, timeout, job.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// StubPDFEngine records render calls and returns fixed PDF bytes.
type StubPDFEngine struct {
	mu    sync.Mutex
	calls int
	html  string
	Err   error
}

// RenderPDF implements report.PDFEngine.
func (s *StubPDFEngine) RenderPDF(_ context.Context, html string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.html = html
	if s.Err != nil {
		return nil, s.Err
	}
	return []byte("%PDF-1.4 stub"), nil
}

// Calls returns how many times RenderPDF was invoked.
func (s *StubPDFEngine) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastHTML returns the document passed to the most recent render.
func (s *StubPDFEngine) LastHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html
}

// fakeAdminAPI serves the orders connection of the Admin GraphQL API from an
// in-memory order set, paginated with opaque numeric cursors.
type fakeAdminAPI struct {
	mu       sync.Mutex
	orders   []model.Order
	pageSize int
	requests int
	ts       *httptest.Server
}

func newFakeAdminAPI(pageSize int) *fakeAdminAPI {
	return &fakeAdminAPI{pageSize: pageSize}
}

func (f *fakeAdminAPI) start() {
	f.ts = httptest.NewServer(http.HandlerFunc(f.handle))
}

func (f *fakeAdminAPI) stop() {
	if f.ts != nil {
		f.ts.Close()
	}
}

func (f *fakeAdminAPI) url() string {
	return f.ts.URL
}

func (f *fakeAdminAPI) setOrders(orders []model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func (f *fakeAdminAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeAdminAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	var req struct {
		Variables struct {
			After *string `json:"after"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offset := 0
	if req.Variables.After != nil {
		n, err := strconv.Atoi(*req.Variables.After)
		if err != nil {
			http.Error(w, "bad cursor", http.StatusBadRequest)
			return
		}
		offset = n
	}

	end := offset + f.pageSize
	if end > len(f.orders) {
		end = len(f.orders)
	}

	edges := make([]map[string]any, 0, end-offset)
	for _, o := range f.orders[offset:end] {
		edges = append(edges, map[string]any{"node": orderToNode(o)})
	}

	resp := map[string]any{
		"data": map[string]any{
			"orders": map[string]any{
				"pageInfo": map[string]any{
					"hasNextPage": end < len(f.orders),
					"endCursor":   strconv.Itoa(end),
				},
				"edges": edges,
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// orderToNode renders a model.Order in the Admin API wire shape.
func orderToNode(o model.Order) map[string]any {
	lineEdges := make([]map[string]any, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		attrs := make([]map[string]any, 0, len(li.CustomAttributes))
		for _, a := range li.CustomAttributes {
			attrs = append(attrs, map[string]any{"key": a.Key, "value": a.Value})
		}
		lineEdges = append(lineEdges, map[string]any{
			"node": map[string]any{
				"id":           li.ID,
				"title":        li.Title,
				"variantTitle": li.VariantTitle,
				"sku":          li.SKU,
				"vendor":       li.Vendor,
				"quantity":     li.Quantity,
				"originalUnitPriceSet": map[string]any{
					"shopMoney": map[string]any{"amount": li.UnitPrice.String()},
				},
				"discountedTotalSet": map[string]any{
					"shopMoney": map[string]any{"amount": li.LineTotal.String()},
				},
				"customAttributes": attrs,
			},
		})
	}

	node := map[string]any{
		"id":                       o.ID,
		"name":                     o.Name,
		"createdAt":                o.CreatedAt.Format(time.RFC3339),
		"currencyCode":             o.CurrencyCode,
		"displayFinancialStatus":   o.FinancialStatus,
		"displayFulfillmentStatus": o.FulfillmentStatus,
		"customer": map[string]any{
			"displayName": o.Customer.DisplayName,
			"email":       o.Customer.Email,
		},
		"lineItems": map[string]any{"edges": lineEdges},
	}
	if o.ShippingAddress != nil {
		node["shippingAddress"] = map[string]any{
			"name":     o.ShippingAddress.Name,
			"address1": o.ShippingAddress.Address1,
			"address2": o.ShippingAddress.Address2,
			"city":     o.ShippingAddress.City,
			"province": o.ShippingAddress.Province,
			"zip":      o.ShippingAddress.Zip,
			"country":  o.ShippingAddress.Country,
		}
	}
	return node
}

// WithWorkflowHarness is a helper that sets up and tears down a workflow test harness.
func WithWorkflowHarness(t testutil.TestingTB, opts WorkflowTestOptions, fn func(*WorkflowTestHarness)) {
	t.Helper()

	testutil.WithAutoDB(t, func(db *sql.DB) {
		h := NewWorkflowTestHarness(t, db, opts)
		defer h.Close()
		fn(h)
	})
}

// DefaultWorkflowOptions returns default options for workflow testing.
// Note: You must provide RepositoryProvider to avoid import cycles.
func DefaultWorkflowOptions() WorkflowTestOptions {
	return WorkflowTestOptions{
		PageSize: 50,
	}
}

// ExpectStatus fails the test when the job is not in the wanted state.
func ExpectStatus(t testutil.TestingTB, job *model.ReportJob, want model.ReportJobStatus) {
	t.Helper()
	if job.Status != want {
		msg := ""
		if job.ErrorMessage != nil {
			msg = fmt.Sprintf(" (error: %s)", *job.ErrorMessage)
		}
		t.Fatalf("job %s: status %s, want %s%s", job.ID, job.Status, want, msg)
	}
}
