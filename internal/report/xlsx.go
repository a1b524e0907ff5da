package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet every new excelize workbook starts with.
const defaultSheet = "Sheet1"

// XLSXWriter outputs a table as an .xlsx workbook with one sheet.
// The first row holds the column names. Numeric values stay numeric.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write builds the workbook in memory and streams it to the output.
func (w *XLSXWriter) Write(table *Table) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	sheet := defaultSheet
	if table.Sheet != "" && table.Sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, table.Sheet); err != nil {
			return 0, fmt.Errorf("failed to name sheet %q: %w", table.Sheet, err)
		}
		sheet = table.Sheet
	}

	if len(table.Columns) > 0 {
		header := make([]any, len(table.Columns))
		for i, c := range table.Columns {
			header[i] = c
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return 0, fmt.Errorf("failed to build workbook: %w", err)
	}
	n, err := buf.WriteTo(w.output)
	return int(n), err
}
