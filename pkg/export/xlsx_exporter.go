package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Horario"

// XLSXExporter renders a Grid into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the title on row 1 merged across the grid, headers on row 2 and slots below.
func (e *XLSXExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	idx, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	last := xlsxColumn(len(grid.Headers) - 1)
	if err := f.SetColWidth(xlsxSheet, "A", "A", 16); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if len(grid.Headers) > 1 {
		if err := f.SetColWidth(xlsxSheet, "B", last, 30); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	row := 1
	if grid.Title != "" {
		_ = f.SetCellValue(xlsxSheet, xlsxCell(0, row), grid.Title)
		if len(grid.Headers) > 1 {
			_ = f.MergeCell(xlsxSheet, xlsxCell(0, row), xlsxCell(len(grid.Headers)-1, row))
		}
		_ = f.SetCellStyle(xlsxSheet, xlsxCell(0, row), xlsxCell(0, row), headerStyle)
		row++
	}

	for i, header := range grid.Headers {
		_ = f.SetCellValue(xlsxSheet, xlsxCell(i, row), header)
	}
	_ = f.SetCellStyle(xlsxSheet, xlsxCell(0, row), xlsxCell(len(grid.Headers)-1, row), headerStyle)
	row++

	for _, values := range grid.Rows {
		for i := range grid.Headers {
			_ = f.SetCellValue(xlsxSheet, xlsxCell(i, row), grid.cell(values, i))
		}
		_ = f.SetCellStyle(xlsxSheet, xlsxCell(0, row), xlsxCell(len(grid.Headers)-1, row), bodyStyle)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func xlsxColumn(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func xlsxCell(col, row int) string {
	return fmt.Sprintf("%s%d", xlsxColumn(col), row)
}
