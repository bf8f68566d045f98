package ingest

import (
	"strconv"
	"strings"
	"time"

	"saaspulse/pkg/contracts/domain"
)

// maxCellLength bounds how much of a cell is inspected before parsing,
// so a pathological multi-megabyte cell cannot blow up memory.
const maxCellLength = 50

// serialEpoch is day zero of the spreadsheet serial date system.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDate caps workbook serial day counts at roughly the year
// 2447. Larger serials overflow the millisecond arithmetic and would
// wrap around to the epoch instead of failing.
const maxSerialDate = 200000

// dateLayouts are tried in order when a date cell is not a serial number.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ValidateNumber checks that v lies within [min, max]. It returns v
// unchanged on success, so validating an already-validated value is a
// no-op.
func ValidateNumber(v, min, max float64) (float64, error) {
	if v < min || v > max {
		return 0, &InvalidNumberError{Min: min, Max: max}
	}
	return v, nil
}

// ValidatePercentage checks that v is a percentage in [0, 100].
func ValidatePercentage(v float64) (float64, error) {
	if v < 0 || v > 100 {
		return 0, &InvalidPercentageError{}
	}
	return v, nil
}

// parseNumber coerces a raw cell into a bounded float64. Empty cells
// default to 0 (missing optional numeric columns are not an error).
func parseNumber(raw string, min, max float64) (float64, error) {
	cleaned := cleanCell(raw)
	if cleaned == "" {
		return ValidateNumber(0, min, max)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &InvalidNumberError{Min: min, Max: max}
	}
	return ValidateNumber(v, min, max)
}

// parseBounded accepts any real number within the global sanity bounds.
func parseBounded(raw string) (float64, error) {
	return parseNumber(raw, -domain.MaxAbsoluteValue, domain.MaxAbsoluteValue)
}

// parseNonNegative accepts a non-negative number within the global bounds.
func parseNonNegative(raw string) (float64, error) {
	return parseNumber(raw, 0, domain.MaxAbsoluteValue)
}

// parsePercentage accepts a number in [0, 100].
func parsePercentage(raw string) (float64, error) {
	cleaned := cleanCell(raw)
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &InvalidPercentageError{}
	}
	return ValidatePercentage(v)
}

// parseCount accepts a non-negative integer customer count. Fractional
// values are rejected.
func parseCount(raw string) (int, error) {
	v, err := parseNonNegative(raw)
	if err != nil {
		return 0, err
	}
	n := int(v)
	if float64(n) != v {
		return 0, &InvalidNumberError{Min: 0, Max: domain.MaxAbsoluteValue}
	}
	return n, nil
}

// parseDate accepts either a calendar date string or a spreadsheet
// serial day count (days since 1899-12-30, at 86400000 ms per day).
// The cell is truncated to maxCellLength before parsing.
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if len(s) > maxCellLength {
		s = s[:maxCellLength]
	}
	if s == "" {
		return time.Time{}, ErrMissingDate
	}

	// Date cells read raw from a workbook arrive as serial numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 0 || serial > maxSerialDate {
			return time.Time{}, ErrInvalidDate
		}
		ms := serial * 86400000
		return serialEpoch.Add(time.Duration(ms) * time.Millisecond), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// cleanCell trims a cell and strips thousands separators and a leading
// currency symbol so "$1,234.50" parses as 1234.50.
func cleanCell(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > maxCellLength {
		s = s[:maxCellLength]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	return strings.TrimSpace(s)
}
