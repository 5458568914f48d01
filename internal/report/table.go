package report

import (
	"fmt"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// Column describes one table column and how the XLSX renderer should style
// it. Width is in Excel character units.
type Column struct {
	Title  string
	Width  float64
	Wrap   bool
	Center bool
	Right  bool
}

// Row is one rendered table row. Subtotal rows get distinct XLSX styling.
type Row struct {
	Cells    []string
	Subtotal bool
}

// Table is the flat row set produced by a builder, consumed in input order
// by the CSV and XLSX renderers.
type Table struct {
	Sheet   string
	Columns []Column
	Rows    []Row
}

// Headers returns the column titles in order.
func (t *Table) Headers() []string {
	hs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		hs[i] = c.Title
	}
	return hs
}

// Builder shapes orders into the row set for one report type and names the
// artifact formats that type produces.
type Builder interface {
	Type() model.ReportType
	Formats() []model.ReportFormat
	BuildTable(orders []model.Order) *Table
}

// builders is the report-type dispatch table.
var builders = map[model.ReportType]Builder{
	model.ReportTypeStandard:        standardBuilder{},
	model.ReportTypeQB:              qbBuilder{},
	model.ReportTypeInternalVendors: vendorsBuilder{},
}

// BuilderFor resolves the builder for a report type.
func BuilderFor(t model.ReportType) (Builder, error) {
	b, ok := builders[t]
	if !ok {
		return nil, fmt.Errorf("no report builder for type %q", t)
	}
	return b, nil
}
