package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReportJobStatus represents the lifecycle state of a report job.
type ReportJobStatus string

const (
	// JobStatusQueued indicates a job is waiting to be picked up by a worker.
	JobStatusQueued ReportJobStatus = "queued"
	// JobStatusRunning indicates a worker has claimed the job.
	JobStatusRunning ReportJobStatus = "running"
	// JobStatusComplete indicates all artifacts were generated and persisted.
	JobStatusComplete ReportJobStatus = "complete"
	// JobStatusFailed indicates the job aborted; ErrorMessage carries the cause.
	JobStatusFailed ReportJobStatus = "failed"
)

// Valid returns true if the ReportJobStatus is valid.
func (s ReportJobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusComplete ||
		s == JobStatusFailed
}

// Terminal returns true once a job can no longer change state.
func (s ReportJobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// ErrNoJobsAvailable is returned when no queued jobs are available for reservation.
var ErrNoJobsAvailable = errors.New("no jobs available")

// ReportJob represents one asynchronous request to produce a merchant report.
// Jobs are created by the web tier, mutated exclusively by the runner, and
// read back by the polling client.
type ReportJob struct {
	ID             string          `json:"id"                         db:"id"`
	ShopID         string          `json:"shop_id"                    db:"shop_id"`
	Status         ReportJobStatus `json:"status"                     db:"status"`
	Params         json.RawMessage `json:"params"                     db:"params"`
	ErrorMessage   *string         `json:"error_message,omitempty"    db:"error_message"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// DecodeParams unpacks the serialized request parameters stored on the job.
func (j *ReportJob) DecodeParams() (ReportParams, error) {
	var p ReportParams
	if err := json.Unmarshal(j.Params, &p); err != nil {
		return ReportParams{}, fmt.Errorf("decode job params: %w", err)
	}
	return p, nil
}

// DefaultFinancialStatuses is applied when a create request omits the filter.
var DefaultFinancialStatuses = []string{"paid", "partially_paid"}

// ReportParams are the request parameters carried by a job. Dates are
// inclusive ISO-8601 calendar dates (YYYY-MM-DD).
type ReportParams struct {
	StartDate         string     `json:"startDate"`
	EndDate           string     `json:"endDate"`
	FinancialStatus   []string   `json:"financialStatus,omitempty"`
	FulfillmentStatus *string    `json:"fulfillmentStatus,omitempty"`
	ReportType        ReportType `json:"reportType"`
}

const isoDateLayout = "2006-01-02"

// Validate checks required fields and normalizes defaults in place.
func (p *ReportParams) Validate() error {
	if strings.TrimSpace(p.StartDate) == "" || strings.TrimSpace(p.EndDate) == "" {
		return errors.New("startDate and endDate are required")
	}
	start, err := time.Parse(isoDateLayout, DatePart(p.StartDate))
	if err != nil {
		return fmt.Errorf("invalid startDate: %w", err)
	}
	end, err := time.Parse(isoDateLayout, DatePart(p.EndDate))
	if err != nil {
		return fmt.Errorf("invalid endDate: %w", err)
	}
	if end.Before(start) {
		return errors.New("endDate must not precede startDate")
	}
	if !p.ReportType.Valid() {
		return fmt.Errorf("invalid report type: %q", p.ReportType)
	}
	if len(p.FinancialStatus) == 0 {
		p.FinancialStatus = append([]string(nil), DefaultFinancialStatuses...)
	}
	return nil
}

// DatePart strips an optional time component from an ISO timestamp.
func DatePart(s string) string {
	if i := strings.IndexByte(s, 'T'); i > -1 {
		return s[:i]
	}
	return s
}

// CreateReportJobRequest represents a request to create a new report job.
type CreateReportJobRequest struct {
	ShopID string       `json:"shop_id"`
	Params ReportParams `json:"params"`
}

// Validate validates the CreateReportJobRequest fields.
func (r *CreateReportJobRequest) Validate() error {
	if strings.TrimSpace(r.ShopID) == "" {
		return errors.New("shop id is required")
	}
	return r.Params.Validate()
}

// ReportArtifact is one persisted output blob for a completed job.
type ReportArtifact struct {
	JobID     string       `json:"job_id"     db:"job_id"`
	Format    ReportFormat `json:"format"     db:"format"`
	Content   []byte       `json:"-"          db:"content"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// ReportJobStats represents counts of jobs in each lifecycle state.
type ReportJobStats struct {
	Queued   int `json:"queued"`
	Running  int `json:"running"`
	Complete int `json:"complete"`
	Failed   int `json:"failed"`
}

// ReportJobStatusResponse represents the status information polled by clients.
type ReportJobStatusResponse struct {
	Status       ReportJobStatus `json:"status"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Formats      []ReportFormat  `json:"formats,omitempty"`
}
