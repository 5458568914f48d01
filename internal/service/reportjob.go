package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgerline/shopreports/internal/core"
	"github.com/ledgerline/shopreports/internal/data"
	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
)

// ReportJobServiceOptions groups dependencies for ReportJobService.
type ReportJobServiceOptions struct {
	Repo   core.ReportJobRepository // Required: report job repository
	Shops  core.ShopRepository      // Required: shop repository for ownership checks
	Logger *slog.Logger             // Optional: structured logger
}

// ReportJobService provides business logic for report job operations.
//
// This service manages:
// - Enqueueing report jobs for registered shops
// - Listing and polling job status (scoped to the owning shop)
// - Serving rendered report artifacts for completed jobs.
type ReportJobService struct {
	repo   core.ReportJobRepository
	shops  core.ShopRepository
	logger *slog.Logger
}

// NewReportJobService constructs a new ReportJobService.
func NewReportJobService(opts ReportJobServiceOptions) (*ReportJobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReportJobRepository is required")
	}
	if opts.Shops == nil {
		return nil, errors.New("ShopRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "report_job_service")
	}

	return &ReportJobService{
		repo:   opts.Repo,
		shops:  opts.Shops,
		logger: logger,
	}, nil
}

// MustNewReportJobService constructs a new ReportJobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewReportJobService(opts ReportJobServiceOptions) *ReportJobService {
	svc, err := NewReportJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ReportJobService: %v", err))
	}
	return svc
}

// Create validates the request and enqueues a new report job for the shop.
func (s *ReportJobService) Create(
	ctx context.Context,
	req *model.CreateReportJobRequest,
) (*model.ReportJob, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if _, err := s.shops.GetByID(ctx, req.ShopID); err != nil {
		if errors.Is(err, data.ErrShopNotFound) {
			return nil, apperrors.NotFoundf("shop %s not found", req.ShopID)
		}
		return nil, fmt.Errorf("verify shop %s: %w", req.ShopID, err)
	}

	job, err := s.repo.Enqueue(ctx, req.ShopID, req.Params)
	if err != nil {
		return nil, fmt.Errorf("enqueue report job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "report job enqueued",
			"id", job.ID,
			"shop_id", job.ShopID,
			"report_type", req.Params.ReportType,
		)
	}

	return job, nil
}

// List returns the most recent report jobs for the shop, newest first.
func (s *ReportJobService) List(ctx context.Context, shopID string) ([]*model.ReportJob, error) {
	if shopID == "" {
		return nil, apperrors.Validation("shop id is required")
	}

	jobs, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list report jobs for shop %s: %w", shopID, err)
	}
	return jobs, nil
}

// Get returns a report job by ID, enforcing shop ownership.
func (s *ReportJobService) Get(ctx context.Context, shopID, jobID string) (*model.ReportJob, error) {
	if jobID == "" {
		return nil, apperrors.Validation("job id is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, data.ErrReportJobNotFound) {
			return nil, apperrors.NotFoundf("report job %s not found", jobID)
		}
		return nil, fmt.Errorf("get report job %s: %w", jobID, err)
	}

	if job.ShopID != shopID {
		return nil, apperrors.Forbidden("report job belongs to another shop")
	}

	return job, nil
}

// Status returns the poll-friendly status view of a job. For completed jobs
// the response lists the artifact formats available for download.
func (s *ReportJobService) Status(
	ctx context.Context,
	shopID, jobID string,
) (*model.ReportJobStatusResponse, error) {
	job, err := s.Get(ctx, shopID, jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.ReportJobStatusResponse{
		Status:       job.Status,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}

	if job.Status == model.JobStatusComplete {
		formats, err := s.repo.ArtifactFormats(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("list artifact formats for job %s: %w", jobID, err)
		}
		resp.Formats = formats
	}

	return resp, nil
}

// ArtifactDownload carries one rendered report ready to be served to a client.
type ArtifactDownload struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Artifact returns the rendered report for a completed job in the requested
// format. The format must be one produced for the job's report type.
func (s *ReportJobService) Artifact(
	ctx context.Context,
	shopID, jobID string,
	format model.ReportFormat,
) (*ArtifactDownload, error) {
	if !format.Valid() {
		return nil, apperrors.ValidationField("format", fmt.Sprintf("unknown report format %q", format))
	}

	job, err := s.Get(ctx, shopID, jobID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case model.JobStatusComplete:
	case model.JobStatusFailed:
		return nil, apperrors.Conflict("report job failed; no artifacts were produced")
	default:
		return nil, apperrors.Conflict("report job is not complete yet")
	}

	params, err := job.DecodeParams()
	if err != nil {
		return nil, fmt.Errorf("decode params for job %s: %w", jobID, err)
	}
	if !formatApplies(params.ReportType, format) {
		return nil, apperrors.ValidationField("format",
			fmt.Sprintf("format %q is not produced for %s reports", format, params.ReportType))
	}

	content, err := s.repo.GetArtifact(ctx, jobID, format)
	if err != nil {
		if errors.Is(err, data.ErrArtifactNotFound) {
			return nil, apperrors.NotFoundf("no %s artifact for report job %s", format, jobID)
		}
		return nil, fmt.Errorf("get artifact for job %s: %w", jobID, err)
	}

	return &ArtifactDownload{
		Content:     content,
		ContentType: format.ContentType(),
		Filename:    format.Filename(jobID),
	}, nil
}

// Stats returns queue-wide counts of jobs per status.
func (s *ReportJobService) Stats(ctx context.Context) (*model.ReportJobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get report job stats: %w", err)
	}
	return stats, nil
}

func formatApplies(t model.ReportType, format model.ReportFormat) bool {
	for _, f := range model.FormatsFor(t) {
		if f == format {
			return true
		}
	}
	return false
}
