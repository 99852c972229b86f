package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is used when the dataset carries no title.
const DefaultSheetName = "Sheet1"

// XLSXExporter renders a dataset into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the headers in row 1 and one row per record below. The sheet is named
// after the dataset title.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := DefaultSheetName
	if data.Title != "" {
		if err := f.SetSheetName(DefaultSheetName, data.Title); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		sheet = data.Title
	}

	if err := writeRow(f, sheet, 1, data.Headers, nil); err != nil {
		return nil, err
	}
	numeric := data.numericSet()
	for i, row := range data.Rows {
		if err := writeRow(f, sheet, i+2, row, numeric); err != nil {
			return nil, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err != nil {
		return nil, fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return nil, fmt.Errorf("style headers: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string, numeric map[int]bool) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
		if numeric[i] {
			if n, err := strconv.Atoi(v); err == nil {
				cells[i] = n
			}
		}
	}
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", rowNum, err)
	}
	return nil
}
