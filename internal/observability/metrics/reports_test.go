package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	name  string
	value any
	tags  map[string]string
}

type captureSink struct {
	counts  []recordedMetric
	gauges  []recordedMetric
	timings []recordedMetric
}

func (s *captureSink) Count(name string, value int64, tags map[string]string) {
	s.counts = append(s.counts, recordedMetric{name, value, tags})
}

func (s *captureSink) Gauge(name string, value float64, tags map[string]string) {
	s.gauges = append(s.gauges, recordedMetric{name, value, tags})
}

func (s *captureSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.timings = append(s.timings, recordedMetric{name, value, tags})
}

func TestReportJobMetrics_JobCompleted(t *testing.T) {
	sink := &captureSink{}
	m := NewReportJobMetrics(sink)

	m.JobCompleted("standard", 1500*time.Millisecond)

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "report_jobs.completed", sink.counts[0].name)
	assert.Equal(t, int64(1), sink.counts[0].value)
	assert.Equal(t, "standard", sink.counts[0].tags["report_type"])

	require.Len(t, sink.timings, 1)
	assert.Equal(t, "report_jobs.duration", sink.timings[0].name)
	assert.Equal(t, 1500*time.Millisecond, sink.timings[0].value)
}

func TestReportJobMetrics_JobFailed(t *testing.T) {
	sink := &captureSink{}
	m := NewReportJobMetrics(sink)

	m.JobFailed("qb", errors.New("fetch orders: 429"))

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "report_jobs.failed", sink.counts[0].name)
	assert.Equal(t, "qb", sink.counts[0].tags["report_type"])
	assert.NotEmpty(t, sink.counts[0].tags["error_class"])
}

func TestReportJobMetrics_NilSafe(t *testing.T) {
	var m *ReportJobMetrics
	m.JobCompleted("standard", time.Second)
	m.JobFailed("standard", errors.New("boom"))

	m = NewReportJobMetrics(nil)
	m.JobCompleted("standard", time.Second)
	m.JobFailed("standard", errors.New("boom"))
}
