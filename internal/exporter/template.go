// Package exporter generates the downloadable spreadsheet template the
// user fills in and re-uploads.
package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateFilename is the suggested filename for the download.
const TemplateFilename = "financial-template.xlsx"

// TemplateHeaders are the canonical column names the ingestor resolves
// without falling back to aliases.
var TemplateHeaders = []string{
	"Date",
	"Revenue",
	"Operating Expenses",
	"Customer Count",
	"Churn Rate",
	"Cash In",
	"Cash Out",
	"Cash Balance",
}

// exampleRows pre-fill the template so the expected shape of each
// column is obvious.
var exampleRows = [][]interface{}{
	{"2024-01-01", 50000, 30000, 100, 5, 55000, 35000, 200000},
	{"2024-02-01", 55000, 32000, 110, 4.5, 60000, 37000, 223000},
	{"2024-03-01", 61000, 33000, 118, 4.2, 66000, 39000, 250000},
}

// Template builds a workbook whose first sheet carries the canonical
// headers plus three example rows, returned as XLSX bytes.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range exampleRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute row cell: %w", err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write example row %d: %w", i+1, err)
		}
	}

	// Make the columns wide enough that the headers are readable
	// without resizing.
	if err := f.SetColWidth(sheet, "A", "H", 18); err != nil {
		return nil, fmt.Errorf("failed to set column widths: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize template: %w", err)
	}
	return buf.Bytes(), nil
}
