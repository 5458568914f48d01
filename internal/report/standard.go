package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// standardBuilder produces the flat per-line-item sales detail layout:
// one row per line item, sorted by (ISO date, order name, line-item id).
// Memo preserves original attribute order.
type standardBuilder struct{}

func (standardBuilder) Type() model.ReportType { return model.ReportTypeStandard }

func (standardBuilder) Formats() []model.ReportFormat {
	return model.FormatsFor(model.ReportTypeStandard)
}

func (standardBuilder) BuildTable(orders []model.Order) *Table {
	type rec struct {
		date       string
		orderName  string
		lineItemID string
		cells      []string
	}
	var recs []rec

	for _, order := range orders {
		if len(order.LineItems) == 0 {
			continue
		}
		createdAt := order.CreatedAt.UTC()
		isoDate := createdAt.Format("2006-01-02")
		for _, li := range order.LineItems {
			memo := FormatMemo(li.CustomAttributes, MemoOptions{})
			recs = append(recs, rec{
				date:       isoDate,
				orderName:  order.Name,
				lineItemID: li.ID,
				cells: []string{
					createdAt.Format(time.RFC3339),
					isoDate,
					order.Name,
					order.ID,
					order.Customer.DisplayName,
					order.Customer.Email,
					li.Title,
					li.VariantTitle,
					li.SKU,
					strconv.Itoa(li.Quantity),
					li.UnitPrice.StringFixed(2),
					li.LineTotal.StringFixed(2),
					order.CurrencyCode,
					memo,
					li.ID,
				},
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].date != recs[j].date {
			return recs[i].date < recs[j].date
		}
		if recs[i].orderName != recs[j].orderName {
			return recs[i].orderName < recs[j].orderName
		}
		return recs[i].lineItemID < recs[j].lineItemID
	})

	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{Cells: r.cells}
	}
	return &Table{
		Sheet: "Sales Detail",
		Columns: []Column{
			{Title: "Order Created At", Width: 22},
			{Title: "Order Date", Width: 12},
			{Title: "Order Name", Width: 12},
			{Title: "Order ID", Width: 30},
			{Title: "Customer Name", Width: 25},
			{Title: "Customer Email", Width: 28},
			{Title: "Line Item Title", Width: 30},
			{Title: "Variant Title", Width: 20},
			{Title: "SKU", Width: 15},
			{Title: "Quantity", Width: 10, Right: true},
			{Title: "Unit Price", Width: 12, Right: true},
			{Title: "Line Total", Width: 12, Right: true},
			{Title: "Currency", Width: 10},
			{Title: "Memo", Width: 50, Wrap: true},
			{Title: "Line Item ID", Width: 30},
		},
		Rows: rows,
	}
}
