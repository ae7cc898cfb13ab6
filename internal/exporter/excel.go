// =============================================================================
// XML Invoice Converter - Excel Exporter
// =============================================================================
//
// Writes the final output table to an XLSX workbook. This is a consumer of
// the pipeline's output schema: the rows arrive fully assembled and are
// written verbatim, header row styled the way the back office expects
// (bold white on blue, thin border).
//
// =============================================================================

package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/officina-data/invoiceconv/internal/types"
)

// SheetName is the single sheet the table is written to.
const SheetName = "Invoice"

// headerFill is the background of the header row.
const headerFill = "4472C4"

// Workbook builds an in-memory workbook from the output rows. The caller
// owns the returned file and must Close it.
func Workbook(rows []types.OutputRow) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, name := range types.OutputColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, styleID); err != nil {
			return nil, fmt.Errorf("failed to style header cell: %w", err)
		}
	}

	for i, row := range rows {
		for col, value := range row.Values() {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	return f, nil
}

// Save writes the output rows to an XLSX file at path.
func Save(rows []types.OutputRow, path string) error {
	f, err := Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
