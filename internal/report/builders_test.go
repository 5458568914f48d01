package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopreports/internal/domain/model"
	"github.com/ledgerline/shopreports/internal/testutil"
)

func TestBuilderFor(t *testing.T) {
	for _, reportType := range []model.ReportType{
		model.ReportTypeStandard,
		model.ReportTypeQB,
		model.ReportTypeInternalVendors,
	} {
		b, err := BuilderFor(reportType)
		require.NoError(t, err)
		assert.Equal(t, reportType, b.Type())
		assert.Equal(t, model.FormatsFor(reportType), b.Formats())
	}

	_, err := BuilderFor(model.ReportType("bogus"))
	assert.Error(t, err)
}

func TestStandardBuilder_BuildTable(t *testing.T) {
	jan2 := time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)
	jan3 := time.Date(2024, 1, 3, 16, 0, 0, 0, time.UTC)

	orders := []model.Order{
		testutil.NewOrder("#1002").
			CreatedAt(jan3).
			Customer("Grace Hopper", "grace@example.com").
			LineItem("Mug", 2, "12.50").
			Build(),
		testutil.NewOrder("#1001").
			CreatedAt(jan2).
			LineItem("Shirt", 1, "25.00").
			Attributes(testutil.Attr("Text", "I N S I D E")).
			Build(),
		testutil.NewOrder("#1003").CreatedAt(jan3).Build(), // no line items
	}

	table := standardBuilder{}.BuildTable(orders)

	assert.Equal(t, "Sales Detail", table.Sheet)
	require.Len(t, table.Columns, 15)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0].Cells
	assert.Equal(t, "2024-01-02T08:30:00Z", first[0])
	assert.Equal(t, "2024-01-02", first[1])
	assert.Equal(t, "#1001", first[2])
	assert.Equal(t, "Shirt", first[6])
	assert.Equal(t, "1", first[9])
	assert.Equal(t, "25.00", first[10])
	assert.Equal(t, "25.00", first[11])
	assert.Equal(t, "Text: INSIDE", first[13])

	second := table.Rows[1].Cells
	assert.Equal(t, "#1002", second[2])
	assert.Equal(t, "Grace Hopper", second[4])
	assert.Equal(t, "grace@example.com", second[5])
	assert.Equal(t, "2", second[9])
	assert.Equal(t, "12.50", second[10])
	assert.Equal(t, "25.00", second[11])

	assert.False(t, table.Rows[0].Subtotal)
}

func TestStandardBuilder_SortsByDateOrderAndLine(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		testutil.NewOrder("#2002").CreatedAt(at).LineItem("B", 1, "1.00").Build(),
		testutil.NewOrder("#2001").CreatedAt(at).
			LineItem("X", 1, "1.00").
			LineItem("A", 1, "1.00").
			Build(),
	}

	table := standardBuilder{}.BuildTable(orders)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "#2001", table.Rows[0].Cells[2])
	assert.Equal(t, "#2001", table.Rows[1].Cells[2])
	assert.Equal(t, "#2002", table.Rows[2].Cells[2])
	// Within an order, line item id breaks the tie.
	assert.Equal(t, "X", table.Rows[0].Cells[6])
	assert.Equal(t, "A", table.Rows[1].Cells[6])
}

func TestQBBuilder_BuildTable(t *testing.T) {
	jan5 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	jan6 := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)

	orders := []model.Order{
		testutil.NewOrder("#1010").
			CreatedAt(jan6).
			Customer("Ada Lovelace", "ada@example.com").
			LineItem("Poster", 1, "15.00").
			Build(),
		testutil.NewOrder("#1002").
			CreatedAt(jan5).
			LineItem("Mug", 3, "12.00").
			Build(),
		testutil.NewOrder("#1001").
			CreatedAt(jan5).
			LineItem("Shirt", 2, "25.00").
			Build(),
	}

	table := qbBuilder{}.BuildTable(orders)

	assert.Equal(t, "QB Report", table.Sheet)
	require.Len(t, table.Columns, 8)
	// Three item rows plus one subtotal per date group.
	require.Len(t, table.Rows, 5)

	assert.Equal(t, []string{
		"01/05/2024", "Test Customer", "1001", "Shirt", "2", "", "", "",
	}, table.Rows[0].Cells[:8])

	// Second row of the same date group blanks the date.
	assert.Equal(t, "", table.Rows[1].Cells[0])
	assert.Equal(t, "1002", table.Rows[1].Cells[2])

	subtotal := table.Rows[2]
	assert.True(t, subtotal.Subtotal)
	assert.Equal(t, "Total orders for 01/05/2024", subtotal.Cells[1])
	assert.Equal(t, "5", subtotal.Cells[4])

	assert.Equal(t, "01/06/2024", table.Rows[3].Cells[0])
	assert.Equal(t, "Ada Lovelace", table.Rows[3].Cells[1])

	last := table.Rows[4]
	assert.True(t, last.Subtotal)
	assert.Equal(t, "Total orders for 01/06/2024", last.Cells[1])
	assert.Equal(t, "1", last.Cells[4])
}

func TestQBBuilder_NumericOrderSort(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		testutil.NewOrder("#1010").CreatedAt(at).LineItem("A", 1, "1.00").Build(),
		testutil.NewOrder("#999").CreatedAt(at).LineItem("B", 1, "1.00").Build(),
	}

	table := qbBuilder{}.BuildTable(orders)

	require.Len(t, table.Rows, 3)
	// 999 sorts before 1010 numerically, not lexically.
	assert.Equal(t, "999", table.Rows[0].Cells[2])
	assert.Equal(t, "1010", table.Rows[1].Cells[2])
}

func TestVendorsBuilder_BuildTable(t *testing.T) {
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	order := testutil.NewOrder("#3001").
		CreatedAt(at).
		ShippingTo(model.ShippingAddress{
			Name:     "Ada Lovelace",
			Address1: "12 Analytical Way",
			City:     "London",
			Province: "LND",
			Zip:      "E1 6AN",
		}).
		LineItemFull(model.LineItem{
			ID:           "li-1",
			Title:        "Engraved Pen",
			VariantTitle: "Blue",
			SKU:          "PEN-01",
			Vendor:       "Acme",
			Quantity:     2,
			CustomAttributes: []model.CustomAttribute{
				{Key: "Text", Value: "For Grace"},
			},
		}).
		Build()

	table := vendorsBuilder{}.BuildTable([]model.Order{order})

	assert.Equal(t, "Internal Vendors", table.Sheet)
	require.Len(t, table.Columns, 10)
	require.Len(t, table.Rows, 1)

	cells := table.Rows[0].Cells
	assert.Equal(t, "Ada Lovelace\n12 Analytical Way\nLondon, LND, E1 6AN", cells[0])
	assert.Equal(t, "04/01/2024", cells[2])
	assert.Equal(t, "3001", cells[4])
	assert.Equal(t, "Acme:Engraved Pen", cells[5])
	assert.Equal(t, "2", cells[6])
	assert.Equal(t, "Engraved Pen\nBlue\nText: For Grace\nSKU: PEN-01", cells[7])
	assert.Equal(t, "Acme", cells[9])
}

func TestVendorsBuilder_NoVendorNoAddress(t *testing.T) {
	at := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	order := testutil.NewOrder("#3002").
		CreatedAt(at).
		LineItem("Sticker", 1, "3.00").
		Build()

	table := vendorsBuilder{}.BuildTable([]model.Order{order})

	require.Len(t, table.Rows, 1)
	cells := table.Rows[0].Cells
	assert.Equal(t, "", cells[0])
	// Without a vendor the memo description is just the title.
	assert.Equal(t, "Sticker", cells[5])
	assert.Equal(t, "", cells[9])
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name string
		addr *model.ShippingAddress
		want string
	}{
		{name: "nil address", addr: nil, want: ""},
		{
			name: "full address",
			addr: &model.ShippingAddress{
				Name:     "Ada",
				Address1: "12 Way",
				Address2: "Apt 4",
				City:     "London",
				Province: "LND",
				Zip:      "E1",
			},
			want: "Ada\n12 Way\nApt 4\nLondon, LND, E1",
		},
		{
			name: "partial city line",
			addr: &model.ShippingAddress{Name: "Ada", City: "London"},
			want: "Ada\nLondon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAddress(tt.addr))
		})
	}
}
