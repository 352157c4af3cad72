// Package export renders stored records as an Excel workbook or CSV.
package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"loanterms/internal/domain"
)

// SheetName is the worksheet holding the records.
const SheetName = "Records"

// Columns is the header row: id, contact fields, contract fields, update time.
var Columns = func() []string {
	cols := []string{"id", "Customer Service", "Email", "Address"}
	cols = append(cols, domain.ContractFieldNames...)
	return append(cols, "updated_at")
}()

// WriteRecordsXLSX writes one row per record to w. Cells longer than
// excelize.TotalCellChars are clipped.
func WriteRecordsXLSX(w io.Writer, records []domain.TermRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
		if err := f.SetCellStr(SheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header %s: %w", cell, err)
		}
	}

	for r := range records {
		row := r + 2
		for c, v := range recordToRow(&records[r]) {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
			if err := f.SetCellStr(SheetName, cell, clipCell(v)); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return fmt.Errorf("xlsx columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", 24); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", lastCol, 40); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("xlsx panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// clipCell cuts v to the cell limit of excelize.TotalCellChars characters.
// Address captures run to the end of the document and can exceed it; the
// full text stays available in the store and the CSV export.
func clipCell(v string) string {
	if utf8.RuneCountInString(v) <= excelize.TotalCellChars {
		return v
	}
	return string([]rune(v)[:excelize.TotalCellChars])
}

// recordToRow converts a record to a row matching Columns.
func recordToRow(rec *domain.TermRecord) []string {
	row := make([]string, 0, len(Columns))
	row = append(row, rec.ID, deref(rec.Content.CustomerService), deref(rec.Content.Email), deref(rec.Content.Address))
	row = append(row, rec.Content.ContractFields.Values()...)
	return append(row, formatTime(rec.UpdatedAt))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
