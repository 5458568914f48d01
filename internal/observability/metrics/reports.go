// Package metrics emits report pipeline metrics over a StatsD sink.
package metrics

import (
	"time"

	obserrors "github.com/ledgerline/shopreports/internal/observability/errors"
	"github.com/ledgerline/shopreports/internal/observability/statsd"
)

// ReportJobMetrics records queue and render outcomes for report jobs.
// A nil receiver or nil sink drops every emission, so callers never guard.
type ReportJobMetrics struct {
	sink statsd.Sink
}

// NewReportJobMetrics wraps a StatsD sink with report job metric names.
func NewReportJobMetrics(sink statsd.Sink) *ReportJobMetrics {
	return &ReportJobMetrics{sink: sink}
}

// JobCompleted records a successful render with its wall-clock duration.
func (m *ReportJobMetrics) JobCompleted(reportType string, duration time.Duration) {
	if m == nil || m.sink == nil {
		return
	}
	tags := map[string]string{"report_type": reportType}
	m.sink.Count("report_jobs.completed", 1, tags)
	m.sink.Timing("report_jobs.duration", duration, tags)
}

// JobFailed records a terminal failure tagged with the normalized error class.
func (m *ReportJobMetrics) JobFailed(reportType string, err error) {
	if m == nil || m.sink == nil {
		return
	}
	m.sink.Count("report_jobs.failed", 1, map[string]string{
		"report_type": reportType,
		"error_class": obserrors.Classify(err),
	})
}
