package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// qbDateLayout is the MM/DD/YYYY format QuickBooks imports expect.
const qbDateLayout = "01/02/2006"

// qbBuilder produces the QuickBooks-style layout: one row per line item
// sorted by (date, numeric order number, product title), grouped by date
// with the date shown only on the first row of each group and a subtotal
// row appended per group.
type qbBuilder struct{}

func (qbBuilder) Type() model.ReportType { return model.ReportTypeQB }

func (qbBuilder) Formats() []model.ReportFormat {
	return model.FormatsFor(model.ReportTypeQB)
}

func (qbBuilder) BuildTable(orders []model.Order) *Table {
	recs := flattenDated(orders, func(order model.Order, li model.LineItem, date, num string) datedRec {
		memo := FormatMemo(li.CustomAttributes, MemoOptions{
			VariantTitle:   li.VariantTitle,
			SortByPriority: true,
		})
		return datedRec{
			date:    date,
			num:     num,
			product: li.Title,
			qty:     li.Quantity,
			cells: []string{
				date,
				order.Customer.DisplayName,
				num,
				li.Title,
				strconv.Itoa(li.Quantity),
				memo,
				li.SKU,
				li.Vendor,
			},
		}
	})

	sort.SliceStable(recs, func(i, j int) bool {
		if c := compareQBDates(recs[i].date, recs[j].date); c != 0 {
			return c < 0
		}
		ni, nj := numericOrder(recs[i].num), numericOrder(recs[j].num)
		if ni != nj {
			return ni < nj
		}
		return recs[i].product < recs[j].product
	})

	table := &Table{
		Sheet: "QB Report",
		Columns: []Column{
			{Title: "Date", Width: 12},
			{Title: "Customer", Width: 25},
			{Title: "Num", Width: 10, Center: true},
			{Title: "Product/Service", Width: 30},
			{Title: "Qty", Width: 8, Right: true},
			{Title: "Memo/Description", Width: 50, Wrap: true},
			{Title: "SKU", Width: 15},
			{Title: "Vendor", Width: 20},
		},
	}

	// Blank the date on all but the first row of each date group, then
	// close each group with a quantity subtotal row.
	var (
		current  string
		groupQty int
		inGroup  bool
	)
	flush := func() {
		table.Rows = append(table.Rows, Row{
			Cells: []string{
				"", "Total orders for " + current, "", "",
				strconv.Itoa(groupQty), "", "", "",
			},
			Subtotal: true,
		})
	}
	for _, r := range recs {
		if inGroup && r.date != current {
			flush()
			inGroup = false
		}
		row := Row{Cells: r.cells}
		if inGroup {
			row.Cells = append([]string(nil), r.cells...)
			row.Cells[0] = ""
		} else {
			current = r.date
			groupQty = 0
			inGroup = true
		}
		table.Rows = append(table.Rows, row)
		groupQty += r.qty
	}
	if inGroup {
		flush()
	}
	return table
}

// datedRec is the pre-sort shape shared by the QB and internal-vendors
// builders.
type datedRec struct {
	date    string
	num     string
	product string
	qty     int
	cells   []string
}

// flattenDated walks orders into per-line-item records carrying an
// MM/DD/YYYY date and a stripped order number. Orders without line items
// contribute nothing.
func flattenDated(
	orders []model.Order,
	build func(order model.Order, li model.LineItem, date, num string) datedRec,
) []datedRec {
	var recs []datedRec
	for _, order := range orders {
		if len(order.LineItems) == 0 {
			continue
		}
		date := order.CreatedAt.UTC().Format(qbDateLayout)
		num := strings.TrimPrefix(order.Name, "#")
		for _, li := range order.LineItems {
			recs = append(recs, build(order, li, date, num))
		}
	}
	return recs
}

// compareQBDates orders MM/DD/YYYY strings chronologically.
func compareQBDates(a, b string) int {
	ta, errA := time.Parse(qbDateLayout, a)
	tb, errB := time.Parse(qbDateLayout, b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}

// numericOrder parses an order number for sorting, treating unparseable
// values as zero.
func numericOrder(num string) int {
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	return n
}
