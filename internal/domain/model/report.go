// Package model defines the core data types and structures used throughout the shopreports job system.
package model

import (
	"fmt"
	"strings"
)

// ReportType identifies one of the supported sales-detail report layouts.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ReportType string

// ReportFormat identifies an output encoding for a generated report.
type ReportFormat string

const (
	// ReportTypeStandard is the flat per-line-item sales detail report.
	ReportTypeStandard ReportType = "standard"
	// ReportTypeQB is the QuickBooks-style report grouped by date with subtotal rows.
	ReportTypeQB ReportType = "qb"
	// ReportTypeInternalVendors is the internal vendors report with shipping address blocks.
	ReportTypeInternalVendors ReportType = "internal_vendors"

	// FormatCSV is UTF-8 comma-separated values.
	FormatCSV ReportFormat = "csv"
	// FormatXLSX is an Excel workbook.
	FormatXLSX ReportFormat = "xlsx"
	// FormatPDF is a print-ready PDF document.
	FormatPDF ReportFormat = "pdf"
)

// Valid returns true if the ReportType is one of the supported layouts.
func (t ReportType) Valid() bool {
	return t == ReportTypeStandard || t == ReportTypeQB || t == ReportTypeInternalVendors
}

// UnmarshalText implements encoding.TextUnmarshaler so report types can be parsed from env/JSON.
func (t *ReportType) UnmarshalText(text []byte) error {
	v := ReportType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid ReportType: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the ReportFormat is one of the supported encodings.
func (f ReportFormat) Valid() bool {
	return f == FormatCSV || f == FormatXLSX || f == FormatPDF
}

// ContentType returns the MIME type served for artifacts of this format.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the attachment filename offered for a job's artifact.
func (f ReportFormat) Filename(jobID string) string {
	return fmt.Sprintf("report-%s.%s", jobID, string(f))
}

// FormatsFor returns the artifact set produced for a report type.
// Standard reports ship as CSV plus a printable PDF; the QuickBooks and
// internal-vendors layouts ship as CSV plus a styled XLSX workbook.
func FormatsFor(t ReportType) []ReportFormat {
	switch t {
	case ReportTypeStandard:
		return []ReportFormat{FormatCSV, FormatPDF}
	case ReportTypeQB, ReportTypeInternalVendors:
		return []ReportFormat{FormatCSV, FormatXLSX}
	default:
		return nil
	}
}
