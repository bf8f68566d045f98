package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"saaspulse/pkg/contracts/domain"
)

// MaxRows caps how many data rows a single upload may carry. The cap is
// the pipeline's defense against unbounded resource consumption on
// adversarial input.
const MaxRows = 1000

// headerRowOffset converts a 0-based data row index into the row number
// visible in the spreadsheet (1-indexed, plus the header row).
const headerRowOffset = 2

// Canonical field names. Error messages carry these verbatim.
const (
	FieldDate              = "Date"
	FieldRevenue           = "Revenue"
	FieldOperatingExpenses = "Operating Expenses"
	FieldCustomerCount     = "Customer Count"
	FieldChurnRate         = "Churn Rate"
	FieldCashIn            = "Cash In"
	FieldCashOut           = "Cash Out"
	FieldCashBalance       = "Cash Balance"
)

// columnAliases maps each canonical field onto the header names it may
// be sourced from, consulted in priority order.
var columnAliases = []struct {
	Field   string
	Aliases []string
}{
	{FieldDate, []string{"Date", "Month"}},
	{FieldRevenue, []string{"Revenue", "MRR"}},
	{FieldOperatingExpenses, []string{"Operating Expenses", "Expenses"}},
	{FieldCustomerCount, []string{"Customer Count", "Customers"}},
	{FieldChurnRate, []string{"Churn Rate", "Churn"}},
	{FieldCashIn, []string{"Cash In"}},
	{FieldCashOut, []string{"Cash Out"}},
	{FieldCashBalance, []string{"Cash Balance"}},
}

// Parser turns untrusted spreadsheet bytes into validated financial
// period records.
type Parser struct {
	logger  *slog.Logger
	maxRows int
}

// NewParser creates a parser with the default row cap.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		logger:  logger.With(slog.String("component", "ingest")),
		maxRows: MaxRows,
	}
}

// WithMaxRows overrides the row cap. Values below 1 keep the default.
func (p *Parser) WithMaxRows(n int) *Parser {
	if n > 0 {
		p.maxRows = n
	}
	return p
}

// Parse decodes the first sheet of an XLSX workbook, or the sole table
// of a CSV, into an ordered sequence of records. Parsing is
// all-or-nothing: the first validation failure aborts with a RowError
// and no partial record set is returned.
func (p *Parser) Parse(data []byte) ([]domain.FinancialPeriodRecord, error) {
	rows, err := p.decode(data)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	header := rows[0]
	dataRows := rows[1:]
	dataRows = trimBlankRows(dataRows)
	if len(dataRows) == 0 {
		return nil, ErrEmptyFile
	}
	if len(dataRows) > p.maxRows {
		return nil, &TooManyRowsError{Count: len(dataRows), Limit: p.maxRows}
	}

	// Header lookup is case-insensitive; the first occurrence of a
	// duplicated header wins.
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, ok := index[key]; !ok && key != "" {
			index[key] = i
		}
	}

	records := make([]domain.FinancialPeriodRecord, 0, len(dataRows))
	for i, row := range dataRows {
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, err.withRow(i + headerRowOffset)
		}
		records = append(records, rec)
	}

	p.logger.Info("spreadsheet parsed",
		slog.Int("rows", len(records)),
		slog.Int("columns", len(header)))
	return records, nil
}

// fieldError pairs a validation failure with the field it occurred on;
// the row number is attached by the caller.
type fieldError struct {
	field string
	err   error
}

func (e *fieldError) withRow(row int) *RowError {
	return &RowError{Row: row, Field: e.field, Err: e.err}
}

// parseRow resolves and validates every canonical field of one row.
func parseRow(row []string, index map[string]int) (domain.FinancialPeriodRecord, *fieldError) {
	resolve := func(field string) string {
		for _, col := range columnAliases {
			if col.Field != field {
				continue
			}
			for _, alias := range col.Aliases {
				if idx, ok := index[normalizeHeader(alias)]; ok && idx < len(row) {
					if v := strings.TrimSpace(row[idx]); v != "" {
						return v
					}
				}
			}
		}
		return ""
	}

	var rec domain.FinancialPeriodRecord
	var err error

	// A missing date is a hard failure; every numeric field defaults
	// to 0 when its column is absent.
	rec.Date, err = parseDate(resolve(FieldDate))
	if err != nil {
		return rec, &fieldError{FieldDate, err}
	}
	if rec.Revenue, err = parseNonNegative(resolve(FieldRevenue)); err != nil {
		return rec, &fieldError{FieldRevenue, err}
	}
	if rec.OperatingExpenses, err = parseNonNegative(resolve(FieldOperatingExpenses)); err != nil {
		return rec, &fieldError{FieldOperatingExpenses, err}
	}
	if rec.CustomerCount, err = parseCount(resolve(FieldCustomerCount)); err != nil {
		return rec, &fieldError{FieldCustomerCount, err}
	}
	if rec.ChurnRate, err = parsePercentage(resolve(FieldChurnRate)); err != nil {
		return rec, &fieldError{FieldChurnRate, err}
	}
	if rec.CashIn, err = parseNonNegative(resolve(FieldCashIn)); err != nil {
		return rec, &fieldError{FieldCashIn, err}
	}
	if rec.CashOut, err = parseNonNegative(resolve(FieldCashOut)); err != nil {
		return rec, &fieldError{FieldCashOut, err}
	}
	if rec.CashBalance, err = parseBounded(resolve(FieldCashBalance)); err != nil {
		return rec, &fieldError{FieldCashBalance, err}
	}
	return rec, nil
}

// decode extracts raw string rows from either workbook or CSV bytes.
func (p *Parser) decode(data []byte) ([][]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if isWorkbook(data) {
		return p.decodeWorkbook(data)
	}
	return p.decodeCSV(data)
}

// decodeWorkbook reads the first sheet of an XLSX workbook. Cells are
// read raw: formulas are never evaluated (CalcCellValue is not called)
// and rich text collapses to its plain-text content, so untrusted
// workbook content is never executed or interpreted.
func (p *Parser) decodeWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// decodeCSV reads the sole table of a CSV upload.
func (p *Parser) decodeCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

// isWorkbook reports whether the upload starts with the ZIP magic that
// every XLSX file carries.
func isWorkbook(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:2], []byte("PK"))
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// trimBlankRows drops rows whose cells are all empty. Spreadsheet
// editors routinely leave trailing blank rows behind.
func trimBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
