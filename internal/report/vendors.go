package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

// vendorsBuilder produces the internal-vendors layout: one row per line
// item with a multi-line shipping address block, a "{vendor}:{title}" memo,
// and a combined product/customization/SKU block. Sorted by (date, numeric
// order number).
type vendorsBuilder struct{}

func (vendorsBuilder) Type() model.ReportType { return model.ReportTypeInternalVendors }

func (vendorsBuilder) Formats() []model.ReportFormat {
	return model.FormatsFor(model.ReportTypeInternalVendors)
}

func (vendorsBuilder) BuildTable(orders []model.Order) *Table {
	recs := flattenDated(orders, func(order model.Order, li model.LineItem, date, num string) datedRec {
		memo := FormatMemo(li.CustomAttributes, MemoOptions{
			VariantTitle:   li.VariantTitle,
			SortByPriority: true,
		})

		memoDescription := li.Title
		if li.Vendor != "" {
			memoDescription = li.Vendor + ":" + li.Title
		}

		product := li.Title
		if memo != "" {
			product += "\n" + memo
		}
		if li.SKU != "" {
			product += "\nSKU: " + li.SKU
		}

		return datedRec{
			date: date,
			num:  num,
			cells: []string{
				formatAddress(order.ShippingAddress),
				"",
				date,
				order.Customer.DisplayName,
				num,
				memoDescription,
				strconv.Itoa(li.Quantity),
				product,
				"",
				li.Vendor,
			},
		}
	})

	sort.SliceStable(recs, func(i, j int) bool {
		if c := compareQBDates(recs[i].date, recs[j].date); c != 0 {
			return c < 0
		}
		return numericOrder(recs[i].num) < numericOrder(recs[j].num)
	})

	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{Cells: r.cells}
	}
	return &Table{
		Sheet: "Internal Vendors",
		Columns: []Column{
			{Title: "ADDRESS", Width: 30, Wrap: true},
			{Title: "DROP SHIP (Y or N)", Width: 15},
			{Title: "Date", Width: 12},
			{Title: "Customer", Width: 25},
			{Title: "Num", Width: 10, Center: true},
			{Title: "Memo/Description", Width: 30, Wrap: true},
			{Title: "Qty", Width: 8, Right: true},
			{Title: "Product/Service", Width: 50, Wrap: true},
			{Title: "", Width: 10},
			{Title: "Vendor", Width: 20},
		},
		Rows: rows,
	}
}

// formatAddress joins the present address parts into a multi-line block,
// with city, province, and zip comma-joined on one line. Empty when the
// order has no shipping address.
func formatAddress(addr *model.ShippingAddress) string {
	if addr == nil {
		return ""
	}
	var parts []string
	for _, p := range []string{addr.Name, addr.Address1, addr.Address2} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	var cityLine []string
	for _, p := range []string{addr.City, addr.Province, addr.Zip} {
		if p != "" {
			cityLine = append(cityLine, p)
		}
	}
	if len(cityLine) > 0 {
		parts = append(parts, strings.Join(cityLine, ", "))
	}
	return strings.Join(parts, "\n")
}
