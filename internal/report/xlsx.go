package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"
)

const (
	headerFill   = "FFE0E0E0"
	subtotalFill = "FFF0F0F0"
	minRowHeight = 15
)

// RenderXLSX encodes a table as a styled workbook: bold shaded header,
// shaded bold subtotal rows, wrapped top-aligned long-text columns, and row
// heights sized to the tallest wrapped cell.
func RenderXLSX(table *Table) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(table.Sheet)
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	// column numbers are 1-based
	for i, col := range table.Columns {
		sheet.SetColWidth(i+1, i+1, col.Width)
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.Fill = *xlsx.NewFill("solid", headerFill, headerFill)
	headerStyle.Alignment = xlsx.Alignment{Horizontal: "center", Vertical: "center"}
	headerStyle.ApplyFont = true
	headerStyle.ApplyFill = true
	headerStyle.ApplyAlignment = true

	header := sheet.AddRow()
	header.SetHeight(minRowHeight)
	for _, col := range table.Columns {
		cell := header.AddCell()
		cell.SetString(col.Title)
		cell.SetStyle(headerStyle)
	}

	for _, row := range table.Rows {
		sheetRow := sheet.AddRow()
		lines := 1
		for i, value := range row.Cells {
			cell := sheetRow.AddCell()
			cell.SetString(value)
			cell.SetStyle(cellStyle(table.Columns[i], row.Subtotal))
			if table.Columns[i].Wrap {
				if n := strings.Count(value, "\n") + 1; n > lines {
					lines = n
				}
			}
		}
		sheetRow.SetHeight(float64(lines * minRowHeight))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellStyle(col Column, subtotal bool) *xlsx.Style {
	style := xlsx.NewStyle()
	style.Alignment = xlsx.Alignment{Vertical: "top", WrapText: col.Wrap}
	switch {
	case col.Center:
		style.Alignment.Horizontal = "center"
	case col.Right:
		style.Alignment.Horizontal = "right"
	}
	style.ApplyAlignment = true
	if subtotal {
		style.Font.Bold = true
		style.Fill = *xlsx.NewFill("solid", subtotalFill, subtotalFill)
		style.ApplyFont = true
		style.ApplyFill = true
	}
	return style
}
