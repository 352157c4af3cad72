package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"loanterms/internal/domain"
	"loanterms/internal/export"
	"loanterms/internal/parser/parsertest"
	"loanterms/internal/record"
)

func TestWriteRecordsXLSX(t *testing.T) {
	email := "help@bank.com"
	rec := record.Assemble(parsertest.Fields("Acme Bank"), domain.ContactInfo{Email: &email})
	updated := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := export.WriteRecordsXLSX(&buf, []domain.TermRecord{{OutputRecord: rec, UpdatedAt: updated}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, export.Columns, rows[0])
	assert.Len(t, rows[0], 21)
	assert.Equal(t, "Acme Bank", rows[1][0])
	assert.Equal(t, "", rows[1][1])
	assert.Equal(t, "help@bank.com", rows[1][2])
	assert.Equal(t, "Acme Bank", rows[1][4])
	assert.Equal(t, "Laws of the State of New York.", rows[1][19])
	assert.Equal(t, "2024-09-01T12:00:00Z", rows[1][20])
}

func TestWriteRecordsXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteRecordsXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteRecordsXLSX_ClipsLongCells(t *testing.T) {
	addr := "Address line " + strings.Repeat("é", excelize.TotalCellChars)
	rec := record.Assemble(parsertest.Fields("Acme Bank"), domain.ContactInfo{Address: &addr})

	var buf bytes.Buffer
	require.NoError(t, export.WriteRecordsXLSX(&buf, []domain.TermRecord{{OutputRecord: rec}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetCellValue(export.SheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(got, "Address line é"))
}
