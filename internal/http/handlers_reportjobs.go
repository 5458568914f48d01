// Package httpx provides HTTP handlers and utilities for the sales report API.
package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/service"
)

// ReportJobHandlers provides HTTP handlers for report job operations.
// All routes require a shop resolved by the RequireShop middleware.
type ReportJobHandlers struct {
	Svc *service.ReportJobService
}

// createReportJobBody is the request payload for CreateReportJob. The shop
// comes from the request context, never the body.
type createReportJobBody struct {
	StartDate         string           `json:"startDate"`
	EndDate           string           `json:"endDate"`
	FinancialStatus   []string         `json:"financialStatus"`
	FulfillmentStatus *string          `json:"fulfillmentStatus"`
	ReportType        model.ReportType `json:"reportType"`
}

// CreateReportJob enqueues a report job for the calling shop.
func (h *ReportJobHandlers) CreateReportJob(w http.ResponseWriter, r *http.Request) {
	shop, ok := ShopFromContext(r.Context())
	if !ok {
		writeMissingShop(w)
		return
	}

	var body createReportJobBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &model.CreateReportJobRequest{
		ShopID: shop.ID,
		Params: model.ReportParams{
			StartDate:         body.StartDate,
			EndDate:           body.EndDate,
			FinancialStatus:   body.FinancialStatus,
			FulfillmentStatus: body.FulfillmentStatus,
			ReportType:        body.ReportType,
		},
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// ListReportJobs returns the calling shop's recent jobs, newest first.
func (h *ReportJobHandlers) ListReportJobs(w http.ResponseWriter, r *http.Request) {
	shop, ok := ShopFromContext(r.Context())
	if !ok {
		writeMissingShop(w)
		return
	}

	jobs, err := h.Svc.List(r.Context(), shop.ID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, jobs)
}

// GetReportJob returns the status of one job, including downloadable formats
// once the job completes.
func (h *ReportJobHandlers) GetReportJob(w http.ResponseWriter, r *http.Request) {
	shop, ok := ShopFromContext(r.Context())
	if !ok {
		writeMissingShop(w)
		return
	}

	status, err := h.Svc.Status(r.Context(), shop.ID, r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// DownloadArtifact streams a rendered report in the requested format.
func (h *ReportJobHandlers) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	shop, ok := ShopFromContext(r.Context())
	if !ok {
		writeMissingShop(w)
		return
	}

	format := model.ReportFormat(r.URL.Query().Get("format"))
	artifact, err := h.Svc.Artifact(r.Context(), shop.ID, r.PathValue("id"), format)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Content); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// Stats returns queue-wide job counts per status.
func (h *ReportJobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func writeMissingShop(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "shop_required",
		Err:     errors.New("no shop resolved for request"),
	})
}
