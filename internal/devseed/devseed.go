// Package devseed populates a development database with a demo shop and a
// sample report job so the API has data to serve right after startup.
package devseed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/service"
)

const (
	defaultDevShopDomain = "dev-shop.myshopify.com"
	defaultDevShopToken  = "shpat_dev_token"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	Shops *service.ShopService
	Jobs  *service.ReportJobService
}

// Run registers the dev shop and enqueues one sample report job for the last
// thirty days. Re-running is safe: registration upserts, and the extra queued
// job is harmless in a dev database.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if svcs.Shops == nil || svcs.Jobs == nil {
		return fmt.Errorf("devseed requires shop and report job services")
	}

	domain := os.Getenv("DEV_SHOP_DOMAIN")
	if domain == "" {
		domain = defaultDevShopDomain
	}
	token := os.Getenv("DEV_SHOP_TOKEN")
	if token == "" {
		token = defaultDevShopToken
	}

	shop, err := svcs.Shops.Register(ctx, &model.RegisterShopRequest{
		Domain:      domain,
		AccessToken: token,
	})
	if err != nil {
		return fmt.Errorf("seed dev shop: %w", err)
	}
	logger.InfoContext(ctx, "seeded dev shop", "shop_id", shop.ID, "domain", shop.Domain)

	existing, err := svcs.Jobs.List(ctx, shop.ID)
	if err != nil {
		return fmt.Errorf("list dev shop jobs: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "dev shop already has report jobs; skipping sample job",
			"count", len(existing))
		return nil
	}

	now := time.Now().UTC()
	job, err := svcs.Jobs.Create(ctx, &model.CreateReportJobRequest{
		ShopID: shop.ID,
		Params: model.ReportParams{
			StartDate:  now.AddDate(0, 0, -30).Format("2006-01-02"),
			EndDate:    now.Format("2006-01-02"),
			ReportType: model.ReportTypeStandard,
		},
	})
	if err != nil {
		return fmt.Errorf("seed sample report job: %w", err)
	}
	logger.InfoContext(ctx, "seeded sample report job", "job_id", job.ID)
	return nil
}
