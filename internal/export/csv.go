package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"loanterms/internal/domain"
)

// BOM is written before CSV output so Excel on Windows detects UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteRecordsCSV writes a BOM, the Columns header and one row per record.
// Data cells that open with a formula character are quoted with a leading '.
func WriteRecordsCSV(w io.Writer, records []domain.TermRecord) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for i := range records {
		row := recordToRow(&records[i])
		for j := range row {
			row[j] = escapeFormula(row[j])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// escapeFormula prefixes cells that a spreadsheet would evaluate as a formula
// with a single quote.
func escapeFormula(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
