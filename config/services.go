package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReportRunner runs the report job runner.
	ServiceModeReportRunner ServiceMode = "report-runner"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReportRunner,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReportRunner:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, report-runner)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReportRunnerConfig contains report runner service configuration.
type ReportRunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"REPORT_RUNNER_CONCURRENCY" envDefault:"2"`

	// JobLease is the duration to lease a report job. Jobs whose lease
	// lapses without completing return to the queue.
	JobLease time.Duration `env:"REPORT_RUNNER_JOB_LEASE" envDefault:"10m"`

	// PollInterval bounds how long a worker waits for a queue notification
	// before re-checking the queue directly.
	PollInterval time.Duration `env:"REPORT_RUNNER_POLL_INTERVAL" envDefault:"30s"`
}

// Sanitize applies guardrails to report runner configuration values.
func (r *ReportRunnerConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.JobLease < 30*time.Second {
		r.JobLease = 30 * time.Second
	}
	if r.PollInterval < time.Second {
		r.PollInterval = time.Second
	}
}

// ShopifyConfig contains Shopify Admin API client configuration.
type ShopifyConfig struct {
	// APIVersion selects the Admin API version path segment.
	APIVersion string `env:"SHOPIFY_API_VERSION" envDefault:"2024-10"`

	// Timeout bounds a single GraphQL page request.
	Timeout time.Duration `env:"SHOPIFY_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to Shopify configuration values.
func (s *ShopifyConfig) Sanitize() {
	if strings.TrimSpace(s.APIVersion) == "" {
		s.APIVersion = "2024-10"
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
}

// PDFConfig contains headless Chrome PDF rendering configuration.
type PDFConfig struct {
	// ChromePath overrides the Chrome/Chromium executable path.
	// Leave empty to use the first browser found on PATH.
	ChromePath string `env:"PDF_CHROME_PATH" envDefault:""`

	// Timeout bounds a single document render.
	Timeout time.Duration `env:"PDF_TIMEOUT" envDefault:"2m"`
}

// Sanitize applies guardrails to PDF configuration values.
func (p *PDFConfig) Sanitize() {
	if p.Timeout <= 0 {
		p.Timeout = 2 * time.Minute
	}
}

// StatsdConfig contains StatsD metrics emission configuration.
type StatsdConfig struct {
	// Enabled turns on metric emission. Address must also be set.
	Enabled bool `env:"STATSD_ENABLED" envDefault:"false"`

	// Address is the host:port of the StatsD UDP endpoint.
	Address string `env:"STATSD_ADDRESS" envDefault:""`

	// Prefix is prepended to every metric name.
	Prefix string `env:"STATSD_PREFIX" envDefault:"shopreports"`
}
