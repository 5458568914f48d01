package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ledgerline/shopreports/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	ReportJobs *service.ReportJobService
	Shops      *service.ShopService
	Logger     *slog.Logger // Logger for request and panic logging (optional)
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &ReportJobHandlers{Svc: services.ReportJobs}
	shopHandlers := &ShopHandlers{Svc: services.Shops}

	mux.Handle("POST /api/shops", http.HandlerFunc(shopHandlers.RegisterShop))

	shopScoped := RequireShop(services.Shops)
	mux.Handle("POST /api/report-jobs", shopScoped(http.HandlerFunc(jobHandlers.CreateReportJob)))
	mux.Handle("GET /api/report-jobs", shopScoped(http.HandlerFunc(jobHandlers.ListReportJobs)))
	mux.Handle("GET /api/report-jobs/stats", http.HandlerFunc(jobHandlers.Stats))
	mux.Handle("GET /api/report-jobs/{id}", shopScoped(http.HandlerFunc(jobHandlers.GetReportJob)))
	mux.Handle(
		"GET /api/report-jobs/{id}/download",
		shopScoped(http.HandlerFunc(jobHandlers.DownloadArtifact)),
	)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Chain(mux, Recover(logger), Logging(logger))
}
