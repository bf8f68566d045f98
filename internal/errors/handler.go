package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"saaspulse/internal/infrastructure"
	"saaspulse/internal/ingest"
	"saaspulse/internal/kpi"
	"saaspulse/internal/session"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details.
// Ingestion and KPI failures carry enough context (row number, field
// name, accepted range) to be shown verbatim to the end user.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	// Already a problem, pass it through
	var pd *ProblemDetails
	if errors.As(err, &pd) {
		return pd
	}

	var rowErr *ingest.RowError
	if errors.As(err, &rowErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeRowValidation,
			"Spreadsheet Validation Failed",
			rowErr.Error(),
			r.URL.Path,
		).WithExtension("row", rowErr.Row).
			WithExtension("field", rowErr.Field).
			WithExtension("reason", rowErr.Err.Error())
	}

	var tooMany *ingest.TooManyRowsError
	if errors.As(err, &tooMany) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeTooManyRows,
			"Too Many Rows",
			tooMany.Error(),
			r.URL.Path,
		).WithExtension("rows", tooMany.Count).
			WithExtension("limit", tooMany.Limit)
	}

	switch {
	case errors.Is(err, ingest.ErrEmptyFile):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeEmptyFile,
			"Empty Spreadsheet",
			"The uploaded file contains no data rows",
			r.URL.Path,
		)

	case errors.Is(err, kpi.ErrNoRecords):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeNoRecords,
			"No Records",
			"KPIs cannot be computed from an empty record sequence",
			r.URL.Path,
		)

	case errors.Is(err, session.ErrNoData):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNoFinancialData,
			"No Financial Data",
			"No financial data has been uploaded for this session",
			r.URL.Path,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// HandlePanic recovers from panics and returns an RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	render.Render(w, r, problem)
}

// ValidationProblem builds a 400 problem for a single invalid field
func ValidationProblem(field, message, instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusBadRequest,
		TypeValidation,
		"Validation Failed",
		message,
		instance,
	).WithExtension("field", field)
}

// PayloadTooLargeProblem builds a 413 problem naming the byte cap
func PayloadTooLargeProblem(maxBytes int64, instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusRequestEntityTooLarge,
		TypePayloadTooLarge,
		"Payload Too Large",
		"The uploaded file exceeds the maximum allowed size",
		instance,
	).WithExtension("max_bytes", maxBytes)
}
