package ingest

import (
	"errors"
	"fmt"
)

// ErrEmptyFile is returned when the uploaded sheet has no data rows.
var ErrEmptyFile = errors.New("spreadsheet contains no data rows")

// ErrMissingDate is returned when a row has no resolvable date cell.
var ErrMissingDate = errors.New("date is required")

// ErrInvalidDate is returned when a date cell is neither a parseable
// calendar date nor a spreadsheet serial number.
var ErrInvalidDate = errors.New("must be a valid date")

// TooManyRowsError is returned when the sheet exceeds the row cap.
type TooManyRowsError struct {
	Count int
	Limit int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("too many rows: got %d, maximum is %d", e.Count, e.Limit)
}

// InvalidNumberError reports a cell that failed numeric validation,
// carrying the accepted bounds so the message can be shown verbatim to
// the user.
type InvalidNumberError struct {
	Min float64
	Max float64
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("must be a number between %g and %g", e.Min, e.Max)
}

// InvalidPercentageError reports a cell outside the 0-100 range.
type InvalidPercentageError struct{}

func (e *InvalidPercentageError) Error() string {
	return "must be a percentage between 0 and 100"
}

// RowError wraps a validation failure with the spreadsheet-visible row
// number and the canonical field name. Parsing is all-or-nothing: the
// first RowError aborts the whole parse.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
