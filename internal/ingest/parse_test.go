package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	return NewParser(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

const validCSV = `Date,Revenue,Operating Expenses,Customer Count,Churn Rate,Cash In,Cash Out,Cash Balance
2024-01-01,50000,30000,100,5,55000,35000,200000
2024-02-01,55000,32000,110,4.5,60000,37000,223000
`

func TestParseValidCSV(t *testing.T) {
	p := newTestParser(t)

	records, err := p.Parse([]byte(validCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	jan := records[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), jan.Date)
	assert.InDelta(t, 50000, jan.Revenue, 1e-9)
	assert.InDelta(t, 30000, jan.OperatingExpenses, 1e-9)
	assert.Equal(t, 100, jan.CustomerCount)
	assert.InDelta(t, 5, jan.ChurnRate, 1e-9)
	assert.InDelta(t, 55000, jan.CashIn, 1e-9)
	assert.InDelta(t, 35000, jan.CashOut, 1e-9)
	assert.InDelta(t, 200000, jan.CashBalance, 1e-9)
}

func TestParseHeaderAliases(t *testing.T) {
	csv := `Month,MRR,Expenses,Customers,Churn,Cash In,Cash Out,Cash Balance
2024-01-01,50000,30000,100,5,55000,35000,200000
`
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 50000, records[0].Revenue, 1e-9)
	assert.Equal(t, 100, records[0].CustomerCount)
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	csv := `date,revenue,operating expenses,customer count,churn rate,cash in,cash out,cash balance
2024-01-01,50000,30000,100,5,55000,35000,200000
`
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseMissingOptionalColumnsDefaultToZero(t *testing.T) {
	csv := "Date,Revenue\n2024-01-01,50000\n"
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].OperatingExpenses)
	assert.Zero(t, records[0].CustomerCount)
	assert.Zero(t, records[0].ChurnRate)
	assert.Zero(t, records[0].CashBalance)
}

func TestParseInvalidRevenue(t *testing.T) {
	csv := `Date,Revenue,Operating Expenses
2024-01-01,abc,30000
`
	p := newTestParser(t)

	_, err := p.Parse([]byte(csv))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Row)
	assert.Equal(t, FieldRevenue, rowErr.Field)

	var numErr *InvalidNumberError
	assert.ErrorAs(t, err, &numErr)
}

func TestParseRowNumberMatchesSpreadsheet(t *testing.T) {
	csv := `Date,Revenue
2024-01-01,50000
2024-02-01,oops
`
	p := newTestParser(t)

	_, err := p.Parse([]byte(csv))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	// Second data row is row 3 in the spreadsheet's own numbering.
	assert.Equal(t, 3, rowErr.Row)
}

func TestParseMissingDate(t *testing.T) {
	csv := "Revenue,Operating Expenses\n50000,30000\n"
	p := newTestParser(t)

	_, err := p.Parse([]byte(csv))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, FieldDate, rowErr.Field)
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestParseInvalidChurnPercentage(t *testing.T) {
	csv := "Date,Churn Rate\n2024-01-01,130\n"
	p := newTestParser(t)

	_, err := p.Parse([]byte(csv))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, FieldChurnRate, rowErr.Field)

	var pctErr *InvalidPercentageError
	assert.ErrorAs(t, err, &pctErr)
}

func TestParseNegativeRevenueRejected(t *testing.T) {
	csv := "Date,Revenue\n2024-01-01,-5\n"
	p := newTestParser(t)

	_, err := p.Parse([]byte(csv))
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, FieldRevenue, rowErr.Field)
}

func TestParseNegativeCashBalanceAccepted(t *testing.T) {
	csv := "Date,Revenue,Cash Balance\n2024-01-01,50000,-12000\n"
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	assert.InDelta(t, -12000, records[0].CashBalance, 1e-9)
}

func TestParseCurrencyFormatting(t *testing.T) {
	csv := "Date,Revenue\n2024-01-01,\"$1,234.50\"\n"
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	assert.InDelta(t, 1234.50, records[0].Revenue, 1e-9)
}

func TestParseEmptyInputs(t *testing.T) {
	p := newTestParser(t)

	_, err := p.Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	// Header only, no data rows.
	_, err = p.Parse([]byte("Date,Revenue\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	// Header plus blank lines only.
	_, err = p.Parse([]byte("Date,Revenue\n,\n,\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseTooManyRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Revenue\n")
	for i := 0; i < MaxRows+1; i++ {
		fmt.Fprintf(&b, "2024-01-01,%d\n", i)
	}
	p := newTestParser(t)

	_, err := p.Parse([]byte(b.String()))
	var tooMany *TooManyRowsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, MaxRows+1, tooMany.Count)
	assert.Equal(t, MaxRows, tooMany.Limit)
}

func TestParseRowCapBoundary(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Revenue\n")
	for i := 0; i < MaxRows; i++ {
		fmt.Fprintf(&b, "2024-01-01,%d\n", i)
	}
	p := newTestParser(t)

	records, err := p.Parse([]byte(b.String()))
	require.NoError(t, err)
	assert.Len(t, records, MaxRows)
}

func TestParseConfigurableRowCap(t *testing.T) {
	csv := "Date,Revenue\n2024-01-01,1\n2024-02-01,2\n2024-03-01,3\n"
	p := newTestParser(t).WithMaxRows(2)

	_, err := p.Parse([]byte(csv))
	var tooMany *TooManyRowsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 3, tooMany.Count)
	assert.Equal(t, 2, tooMany.Limit)
}

func TestParseSkipsBlankRows(t *testing.T) {
	csv := "Date,Revenue\n2024-01-01,50000\n,\n2024-02-01,55000\n"
	p := newTestParser(t)

	records, err := p.Parse([]byte(csv))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Date", "Revenue", "Operating Expenses", "Customer Count", "Churn Rate", "Cash In", "Cash Out", "Cash Balance"},
		{"2024-01-01", 50000, 30000, 100, 5, 55000, 35000, 200000},
		{"2024-02-01", 55000, 32000, 110, 4.5, 60000, 37000, 223000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p := newTestParser(t)
	records, err := p.Parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.InDelta(t, 55000, records[1].Revenue, 1e-9)
	assert.Equal(t, 110, records[1].CustomerCount)
}

func TestParseWorkbookOnlyReadsFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	_, err := f.NewSheet("Extra")
	require.NoError(t, err)

	header := []interface{}{"Date", "Revenue"}
	row := []interface{}{"2024-01-01", 50000}
	require.NoError(t, f.SetSheetRow(first, "A1", &header))
	require.NoError(t, f.SetSheetRow(first, "A2", &row))

	// Garbage on the second sheet must not affect the parse.
	junk := []interface{}{"not", "a", "table"}
	require.NoError(t, f.SetSheetRow("Extra", "A1", &junk))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p := newTestParser(t)
	records, err := p.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
