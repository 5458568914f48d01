package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// PDFEngine turns an assembled HTML document into PDF bytes. The production
// implementation drives a headless browser; tests substitute a stub.
type PDFEngine interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// PDFMeta carries the report header fields.
type PDFMeta struct {
	ShopDomain string
	StartDate  string
	EndDate    string
}

type pdfDateSection struct {
	Date   string
	Orders []pdfOrder
}

type pdfOrder struct {
	Name              string
	CustomerName      string
	CustomerEmail     string
	FinancialStatus   string
	FulfillmentStatus string
	Lines             []pdfLine
}

type pdfLine struct {
	Title     string
	Variant   string
	SKU       string
	Quantity  int
	UnitPrice string
	LineTotal string
	Memo      string
}

// BuildPDFDocument assembles the printable HTML: orders grouped by calendar
// date ascending, each order a sub-section with its line-item table. All
// user-supplied text is escaped by the template engine.
func BuildPDFDocument(orders []model.Order, meta PDFMeta) (string, error) {
	byDate := make(map[string][]pdfOrder)
	for _, order := range orders {
		date := order.CreatedAt.UTC().Format("2006-01-02")
		byDate[date] = append(byDate[date], newPDFOrder(order))
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	sections := make([]pdfDateSection, len(dates))
	for i, d := range dates {
		sections[i] = pdfDateSection{Date: d, Orders: byDate[d]}
	}

	var buf bytes.Buffer
	err := pdfTemplate.Execute(&buf, struct {
		Meta     PDFMeta
		Sections []pdfDateSection
	}{meta, sections})
	if err != nil {
		return "", fmt.Errorf("execute pdf template: %w", err)
	}
	return buf.String(), nil
}

func newPDFOrder(order model.Order) pdfOrder {
	customerName := order.Customer.DisplayName
	if customerName == "" {
		customerName = "N/A"
	}
	customerEmail := order.Customer.Email
	if customerEmail == "" {
		customerEmail = "N/A"
	}
	p := pdfOrder{
		Name:              order.Name,
		CustomerName:      customerName,
		CustomerEmail:     customerEmail,
		FinancialStatus:   order.FinancialStatus,
		FulfillmentStatus: order.FulfillmentStatus,
	}
	for _, li := range order.LineItems {
		p.Lines = append(p.Lines, pdfLine{
			Title:     li.Title,
			Variant:   li.VariantTitle,
			SKU:       li.SKU,
			Quantity:  li.Quantity,
			UnitPrice: order.CurrencyCode + " " + li.UnitPrice.StringFixed(2),
			LineTotal: order.CurrencyCode + " " + li.LineTotal.StringFixed(2),
			Memo:      FormatMemo(li.CustomAttributes, MemoOptions{}),
		})
	}
	return p
}

var pdfTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
  font-size: 10pt;
  line-height: 1.4;
  color: #333;
}
.header { margin-bottom: 30px; padding-bottom: 15px; border-bottom: 2px solid #ddd; }
.header h1 { margin: 0 0 10px 0; font-size: 18pt; color: #000; }
.header .meta { color: #666; font-size: 9pt; }
.date-section { margin-bottom: 30px; page-break-inside: avoid; }
.date-header {
  font-size: 12pt; font-weight: bold; margin-bottom: 15px; color: #000;
  padding: 8px; background-color: #f5f5f5;
}
.order-section { margin-bottom: 20px; page-break-inside: avoid; }
.order-header { font-size: 11pt; font-weight: bold; margin-bottom: 10px; color: #333; }
.order-info { font-size: 9pt; color: #666; margin-bottom: 10px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 15px; font-size: 9pt; }
th {
  background-color: #f8f8f8; border: 1px solid #ddd; padding: 8px;
  text-align: left; font-weight: bold;
}
td { border: 1px solid #ddd; padding: 8px; }
.memo-cell { white-space: pre-wrap; font-size: 8pt; max-width: 200px; }
.text-right { text-align: right; }
</style>
</head>
<body>
<div class="header">
  <h1>Sales Detail Report</h1>
  <div class="meta">
    <strong>Shop:</strong> {{.Meta.ShopDomain}}<br>
    <strong>Date Range:</strong> {{.Meta.StartDate}} to {{.Meta.EndDate}}
  </div>
</div>
{{range .Sections}}
<div class="date-section">
  <div class="date-header">{{.Date}}</div>
  {{range .Orders}}
  <div class="order-section">
    <div class="order-header">{{.Name}}</div>
    <div class="order-info">
      Customer: {{.CustomerName}} ({{.CustomerEmail}})<br>
      Status: {{.FinancialStatus}} / {{.FulfillmentStatus}}
    </div>
    <table>
      <thead><tr>
        <th>Item</th><th>Variant</th><th>SKU</th>
        <th class="text-right">Qty</th>
        <th class="text-right">Unit Price</th>
        <th class="text-right">Total</th>
        <th>Memo</th>
      </tr></thead>
      <tbody>
      {{range .Lines}}
      <tr>
        <td>{{.Title}}</td>
        <td>{{.Variant}}</td>
        <td>{{.SKU}}</td>
        <td class="text-right">{{.Quantity}}</td>
        <td class="text-right">{{.UnitPrice}}</td>
        <td class="text-right">{{.LineTotal}}</td>
        <td class="memo-cell">{{.Memo}}</td>
      </tr>
      {{end}}
      </tbody>
    </table>
  </div>
  {{end}}
</div>
{{end}}
</body>
</html>
`))
