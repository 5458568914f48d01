// Package reportrunner provides report job execution and worker management.
package reportrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/shopreports/internal/core"
	"github.com/ledgerline/shopreports/internal/data"
	"github.com/ledgerline/shopreports/internal/data/cryptoutil"
	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/observability/metrics"
	"github.com/ledgerline/shopreports/internal/report"
	"github.com/ledgerline/shopreports/internal/service"
	"github.com/ledgerline/shopreports/internal/shopify"
)

const (
	defaultLease        = 10 * time.Minute
	defaultConcurrency  = 2
	defaultPollInterval = 30 * time.Second
)

// RunnerOptions configures the report runner adapter.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Job processing settings
	Lease        time.Duration // per-job lease duration; defaults to 10m
	Concurrency  int           // number of worker goroutines; defaults to 2
	PollInterval time.Duration // queue re-check interval when notifications are quiet; defaults to 30s

	// Orders fetches order pages from the shop's Admin API.
	Orders core.OrderSource
	// PDF renders an HTML document to PDF bytes.
	PDF report.PDFEngine
	// Metrics records job outcomes; nil disables emission.
	Metrics *metrics.ReportJobMetrics

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo  core.ReportJobRepository
	ShopsRepo core.ShopRepository
	Tokens    core.TokenCache
	Encryptor cryptoutil.Encryptor
	Shopify   shopify.Config
}

// Runner pulls report jobs off the queue and renders their artifacts.
type Runner struct {
	jobs         core.ReportJobRepository
	shops        *service.ShopService
	orders       core.OrderSource
	pdf          report.PDFEngine
	metrics      *metrics.ReportJobMetrics
	logger       *slog.Logger
	lease        time.Duration
	workers      int
	pollInterval time.Duration
}

func resolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// NewRunner wires repositories/services and constructs a report runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && (opts.JobsRepo == nil || opts.ShopsRepo == nil) {
		return nil, errors.New("either DB or both JobsRepo and ShopsRepo must be provided")
	}
	if opts.PDF == nil {
		return nil, errors.New("PDF engine is required")
	}

	logger := resolveLogger(opts.Logger)

	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	jobsRepo := opts.JobsRepo
	if jobsRepo == nil {
		jobsRepo = data.NewReportJobRepo(opts.DB, data.ReportJobRepoConfig{Logger: opts.Logger})
	}
	shopsRepo := opts.ShopsRepo
	if shopsRepo == nil {
		shopsRepo = data.NewShopRepo(opts.DB, opts.Encryptor)
	}
	shopSvc := service.MustNewShopService(service.ShopServiceOptions{
		Repo:   shopsRepo,
		Cache:  opts.Tokens,
		Logger: opts.Logger,
	})

	orders := opts.Orders
	if orders == nil {
		orders = shopify.NewClient(opts.Shopify, logger)
	}

	return &Runner{
		jobs:         jobsRepo,
		shops:        shopSvc,
		orders:       orders,
		pdf:          opts.PDF,
		metrics:      opts.Metrics,
		logger:       logger,
		lease:        lease,
		workers:      workers,
		pollInterval: pollInterval,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting report runner",
		"workers", r.workers, "lease", r.lease, "poll_interval", r.pollInterval)

	// first worker error cancels the group
	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(ctx)
		})
	}
	return g.Wait()
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, int(r.lease/time.Second))
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForWork(ctx) {
				return nil
			}
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return nil
}

// waitForWork blocks until a queue notification arrives or the poll interval
// elapses. Returns false when the runner should stop.
func (r *Runner) waitForWork(ctx context.Context) bool {
	waitCtx, cancel := context.WithTimeout(ctx, r.pollInterval)
	defer cancel()

	err := r.jobs.WaitForNotification(waitCtx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err() == nil
	}
	if ctx.Err() != nil {
		return false
	}
	// LISTEN failures degrade to interval polling.
	r.logger.WarnContext(ctx, "job notification wait failed; falling back to polling", "error", err)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.pollInterval):
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.ReportJob) {
	start := time.Now()
	logger := r.logger.With("job_id", job.ID, "shop_id", job.ShopID)
	logger.InfoContext(ctx, "processing report job")

	params, _ := job.DecodeParams()
	reportType := string(params.ReportType)

	artifacts, err := r.renderJob(ctx, job)
	if err != nil {
		logger.ErrorContext(ctx, "report job failed",
			"error", err, "duration_ms", time.Since(start).Milliseconds())
		if _, ferr := r.jobs.Fail(ctx, job.ID, err.Error()); ferr != nil {
			logger.ErrorContext(ctx, "fail job error", "error", ferr, "original_error", err)
		}
		r.metrics.JobFailed(reportType, err)
		return
	}

	completed, err := r.jobs.CompleteWithArtifacts(ctx, job.ID, artifacts)
	switch {
	case err != nil:
		logger.ErrorContext(ctx, "complete job error", "error", err)
	case !completed:
		logger.WarnContext(ctx, "job no longer running; artifacts discarded")
	default:
		formats := make([]string, 0, len(artifacts))
		for f := range artifacts {
			formats = append(formats, string(f))
		}
		logger.InfoContext(ctx, "report job completed",
			"formats", formats, "duration_ms", time.Since(start).Milliseconds())
		r.metrics.JobCompleted(reportType, time.Since(start))
	}
}

// renderJob fetches the job's order window and renders every output format
// for its report type.
func (r *Runner) renderJob(
	ctx context.Context,
	job *model.ReportJob,
) (map[model.ReportFormat][]byte, error) {
	params, err := job.DecodeParams()
	if err != nil {
		return nil, fmt.Errorf("decode job params: %w", err)
	}

	shop, err := r.shops.Get(ctx, job.ShopID)
	if err != nil {
		return nil, fmt.Errorf("load shop: %w", err)
	}
	token, err := r.shops.ResolveToken(ctx, job.ShopID)
	if err != nil {
		return nil, fmt.Errorf("resolve shop token: %w", err)
	}

	orders, err := r.orders.FetchOrders(ctx, shop.Domain, token, shopify.OrderQuery{
		StartDate:         params.StartDate,
		EndDate:           params.EndDate,
		FinancialStatus:   params.FinancialStatus,
		FulfillmentStatus: params.FulfillmentStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	builder, err := report.BuilderFor(params.ReportType)
	if err != nil {
		return nil, err
	}
	table := builder.BuildTable(orders)

	artifacts := make(map[model.ReportFormat][]byte)
	for _, format := range builder.Formats() {
		var content []byte
		switch format {
		case model.FormatCSV:
			content, err = report.RenderCSV(table)
		case model.FormatXLSX:
			content, err = report.RenderXLSX(table)
		case model.FormatPDF:
			content, err = r.renderPDF(ctx, orders, shop.Domain, params)
		default:
			err = fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = content
	}

	return artifacts, nil
}

func (r *Runner) renderPDF(
	ctx context.Context,
	orders []model.Order,
	shopDomain string,
	params model.ReportParams,
) ([]byte, error) {
	html, err := report.BuildPDFDocument(orders, report.PDFMeta{
		ShopDomain: shopDomain,
		StartDate:  model.DatePart(params.StartDate),
		EndDate:    model.DatePart(params.EndDate),
	})
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	return r.pdf.RenderPDF(ctx, html)
}
