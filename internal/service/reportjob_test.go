package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopreports/internal/data"
	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
	"github.com/ledgerline/shopreports/internal/testutil"
)

// fakeReportJobRepo is an in-memory ReportJobRepository for service tests.
type fakeReportJobRepo struct {
	jobs      map[string]*model.ReportJob
	artifacts map[string]map[model.ReportFormat][]byte
	enqueueN  int

	enqueueErr error
	getErr     error
	statsErr   error
}

func newFakeReportJobRepo() *fakeReportJobRepo {
	return &fakeReportJobRepo{
		jobs:      make(map[string]*model.ReportJob),
		artifacts: make(map[string]map[model.ReportFormat][]byte),
	}
}

func (f *fakeReportJobRepo) addJob(job *model.ReportJob) {
	f.jobs[job.ID] = job
}

func (f *fakeReportJobRepo) Enqueue(
	_ context.Context,
	shopID string,
	params model.ReportParams,
) (*model.ReportJob, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.enqueueN++
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	job := &model.ReportJob{
		ID:        "job-1",
		ShopID:    shopID,
		Status:    model.JobStatusQueued,
		Params:    raw,
		CreatedAt: time.Now(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeReportJobRepo) GetByID(_ context.Context, id string) (*model.ReportJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, data.ErrReportJobNotFound
	}
	return job, nil
}

func (f *fakeReportJobRepo) ListByShop(_ context.Context, shopID string) ([]*model.ReportJob, error) {
	var out []*model.ReportJob
	for _, job := range f.jobs {
		if job.ShopID == shopID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeReportJobRepo) ReserveNext(_ context.Context, _ int) (*model.ReportJob, error) {
	return nil, model.ErrNoJobsAvailable
}

func (f *fakeReportJobRepo) WaitForNotification(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeReportJobRepo) CompleteWithArtifacts(
	_ context.Context,
	jobID string,
	artifacts map[model.ReportFormat][]byte,
) (bool, error) {
	job, ok := f.jobs[jobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.Status = model.JobStatusComplete
	f.artifacts[jobID] = artifacts
	return true, nil
}

func (f *fakeReportJobRepo) Fail(_ context.Context, id, errMsg string) (bool, error) {
	job, ok := f.jobs[id]
	if !ok {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = &errMsg
	return true, nil
}

func (f *fakeReportJobRepo) GetArtifact(
	_ context.Context,
	jobID string,
	format model.ReportFormat,
) ([]byte, error) {
	content, ok := f.artifacts[jobID][format]
	if !ok {
		return nil, data.ErrArtifactNotFound
	}
	return content, nil
}

func (f *fakeReportJobRepo) ArtifactFormats(
	_ context.Context,
	jobID string,
) ([]model.ReportFormat, error) {
	var formats []model.ReportFormat
	for format := range f.artifacts[jobID] {
		formats = append(formats, format)
	}
	return formats, nil
}

func (f *fakeReportJobRepo) Stats(_ context.Context) (*model.ReportJobStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := &model.ReportJobStats{}
	for _, job := range f.jobs {
		switch job.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusComplete:
			stats.Complete++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// fakeShopRepo is an in-memory ShopRepository for service tests.
type fakeShopRepo struct {
	shops     map[string]*model.Shop
	upsertErr error
}

func newFakeShopRepo(shops ...*model.Shop) *fakeShopRepo {
	f := &fakeShopRepo{shops: make(map[string]*model.Shop)}
	for _, s := range shops {
		f.shops[s.ID] = s
	}
	return f
}

func (f *fakeShopRepo) Upsert(_ context.Context, domain, token string) (*model.Shop, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	for _, s := range f.shops {
		if s.Domain == domain {
			s.AccessToken = token
			return s, nil
		}
	}
	shop := &model.Shop{ID: "shop-" + domain, Domain: domain, AccessToken: token}
	f.shops[shop.ID] = shop
	return shop, nil
}

func (f *fakeShopRepo) GetByID(_ context.Context, id string) (*model.Shop, error) {
	shop, ok := f.shops[id]
	if !ok {
		return nil, data.ErrShopNotFound
	}
	return shop, nil
}

func (f *fakeShopRepo) GetByDomain(_ context.Context, domain string) (*model.Shop, error) {
	for _, s := range f.shops {
		if s.Domain == domain {
			return s, nil
		}
	}
	return nil, data.ErrShopNotFound
}

func testShop() *model.Shop {
	return &model.Shop{
		ID:          "shop-1",
		Domain:      "example.myshopify.com",
		AccessToken: "shpat_secret",
	}
}

func newReportJobService(repo *fakeReportJobRepo, shops *fakeShopRepo) *ReportJobService {
	return MustNewReportJobService(ReportJobServiceOptions{
		Repo:  repo,
		Shops: shops,
	})
}

func completedJob(shopID string, reportType model.ReportType) *model.ReportJob {
	params, _ := json.Marshal(model.ReportParams{
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
		ReportType: reportType,
	})
	now := time.Now()
	return &model.ReportJob{
		ID:          "job-done",
		ShopID:      shopID,
		Status:      model.JobStatusComplete,
		Params:      params,
		CompletedAt: &now,
	}
}

func TestNewReportJobService(t *testing.T) {
	repo := newFakeReportJobRepo()
	shops := newFakeShopRepo()

	_, err := NewReportJobService(ReportJobServiceOptions{Shops: shops})
	assert.Error(t, err)

	_, err = NewReportJobService(ReportJobServiceOptions{Repo: repo})
	assert.Error(t, err)

	svc, err := NewReportJobService(ReportJobServiceOptions{Repo: repo, Shops: shops})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestReportJobService_Create(t *testing.T) {
	t.Run("enqueues valid request", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		job, err := svc.Create(context.Background(), testutil.NewReportJobRequest("shop-1").Build())
		require.NoError(t, err)
		assert.Equal(t, "shop-1", job.ShopID)
		assert.Equal(t, model.JobStatusQueued, job.Status)
		assert.Equal(t, 1, repo.enqueueN)
	})

	t.Run("nil request rejected", func(t *testing.T) {
		svc := newReportJobService(newFakeReportJobRepo(), newFakeShopRepo(testShop()))

		_, err := svc.Create(context.Background(), nil)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("invalid params rejected", func(t *testing.T) {
		svc := newReportJobService(newFakeReportJobRepo(), newFakeShopRepo(testShop()))

		req := testutil.NewReportJobRequest("shop-1").WithDateRange("2024-02-01", "2024-01-01").Build()
		_, err := svc.Create(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown shop yields not found", func(t *testing.T) {
		svc := newReportJobService(newFakeReportJobRepo(), newFakeShopRepo())

		_, err := svc.Create(context.Background(), testutil.NewReportJobRequest("ghost").Build())
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("defaults financial statuses", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		job, err := svc.Create(context.Background(), testutil.NewReportJobRequest("shop-1").Build())
		require.NoError(t, err)

		params, err := job.DecodeParams()
		require.NoError(t, err)
		assert.Equal(t, model.DefaultFinancialStatuses, params.FinancialStatus)
	})
}

func TestReportJobService_Get(t *testing.T) {
	repo := newFakeReportJobRepo()
	repo.addJob(completedJob("shop-1", model.ReportTypeStandard))
	svc := newReportJobService(repo, newFakeShopRepo(testShop()))

	t.Run("returns owned job", func(t *testing.T) {
		job, err := svc.Get(context.Background(), "shop-1", "job-done")
		require.NoError(t, err)
		assert.Equal(t, "job-done", job.ID)
	})

	t.Run("missing job yields not found", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "shop-1", "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("foreign job yields forbidden", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "shop-2", "job-done")
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("empty job id rejected", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "shop-1", "")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReportJobService_Status(t *testing.T) {
	t.Run("completed job lists formats", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		repo.addJob(completedJob("shop-1", model.ReportTypeStandard))
		repo.artifacts["job-done"] = map[model.ReportFormat][]byte{
			model.FormatCSV: []byte("a,b\n"),
		}
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		resp, err := svc.Status(context.Background(), "shop-1", "job-done")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusComplete, resp.Status)
		assert.Equal(t, []model.ReportFormat{model.FormatCSV}, resp.Formats)
		assert.NotNil(t, resp.CompletedAt)
	})

	t.Run("queued job has no formats", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		job := completedJob("shop-1", model.ReportTypeStandard)
		job.Status = model.JobStatusQueued
		job.CompletedAt = nil
		repo.addJob(job)
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		resp, err := svc.Status(context.Background(), "shop-1", "job-done")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusQueued, resp.Status)
		assert.Empty(t, resp.Formats)
	})

	t.Run("failed job carries error message", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		job := completedJob("shop-1", model.ReportTypeStandard)
		job.Status = model.JobStatusFailed
		msg := "orders fetch failed"
		job.ErrorMessage = &msg
		repo.addJob(job)
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		resp, err := svc.Status(context.Background(), "shop-1", "job-done")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, resp.Status)
		require.NotNil(t, resp.ErrorMessage)
		assert.Equal(t, "orders fetch failed", *resp.ErrorMessage)
	})
}

func TestReportJobService_Artifact(t *testing.T) {
	setup := func(reportType model.ReportType) (*fakeReportJobRepo, *ReportJobService) {
		repo := newFakeReportJobRepo()
		repo.addJob(completedJob("shop-1", reportType))
		return repo, newReportJobService(repo, newFakeShopRepo(testShop()))
	}

	t.Run("serves stored artifact", func(t *testing.T) {
		repo, svc := setup(model.ReportTypeStandard)
		repo.artifacts["job-done"] = map[model.ReportFormat][]byte{
			model.FormatCSV: []byte("a,b\n"),
		}

		dl, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, []byte("a,b\n"), dl.Content)
		assert.Equal(t, "text/csv; charset=utf-8", dl.ContentType)
		assert.Equal(t, "report-job-done.csv", dl.Filename)
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		_, svc := setup(model.ReportTypeStandard)

		_, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.ReportFormat("docx"))
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "format", apperrors.GetField(err))
	})

	t.Run("format not produced for report type rejected", func(t *testing.T) {
		_, svc := setup(model.ReportTypeQB)

		_, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.FormatPDF)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "format", apperrors.GetField(err))
	})

	t.Run("incomplete job yields conflict", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		job := completedJob("shop-1", model.ReportTypeStandard)
		job.Status = model.JobStatusRunning
		repo.addJob(job)
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		_, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.FormatCSV)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("failed job yields conflict", func(t *testing.T) {
		repo := newFakeReportJobRepo()
		job := completedJob("shop-1", model.ReportTypeStandard)
		job.Status = model.JobStatusFailed
		repo.addJob(job)
		svc := newReportJobService(repo, newFakeShopRepo(testShop()))

		_, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.FormatCSV)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("missing artifact yields not found", func(t *testing.T) {
		_, svc := setup(model.ReportTypeStandard)

		_, err := svc.Artifact(context.Background(), "shop-1", "job-done", model.FormatPDF)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestReportJobService_List(t *testing.T) {
	repo := newFakeReportJobRepo()
	repo.addJob(completedJob("shop-1", model.ReportTypeStandard))
	svc := newReportJobService(repo, newFakeShopRepo(testShop()))

	jobs, err := svc.List(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = svc.List(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestReportJobService_Stats(t *testing.T) {
	repo := newFakeReportJobRepo()
	repo.addJob(completedJob("shop-1", model.ReportTypeStandard))
	svc := newReportJobService(repo, newFakeShopRepo(testShop()))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Complete)

	repo.statsErr = errors.New("db down")
	_, err = svc.Stats(context.Background())
	assert.Error(t, err)
}
