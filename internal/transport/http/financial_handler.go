package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "saaspulse/internal/errors"
	"saaspulse/internal/exporter"
	"saaspulse/internal/services"
	"saaspulse/internal/session"
	"saaspulse/pkg/contracts/domain"
)

// FinancialServiceInterface is the service surface the handler depends on.
type FinancialServiceInterface interface {
	Ingest(ctx context.Context, sessionID string, data []byte) (*services.UploadResult, error)
	Metrics(ctx context.Context, sessionID string) (domain.KPIMetrics, error)
	Chart(ctx context.Context, sessionID string) ([]domain.ChartPoint, error)
	Clear(ctx context.Context, sessionID string)
}

// allowedExtensions are the upload formats the ingestor understands.
var allowedExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
}

// FinancialHandler handles spreadsheet uploads and KPI reads.
type FinancialHandler struct {
	service      FinancialServiceInterface
	sessions     *SessionCookie
	maxBytes     int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFinancialHandler creates a new financial handler
func NewFinancialHandler(service FinancialServiceInterface, sessions *SessionCookie, maxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FinancialHandler {
	return &FinancialHandler{
		service:      service,
		sessions:     sessions,
		maxBytes:     maxBytes,
		logger:       logger.With(slog.String("component", "financial_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the financial routes
func (h *FinancialHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)
	r.Delete("/", h.Clear)
	r.Get("/metrics", h.GetMetrics)
	r.Get("/chart", h.GetChart)
	r.Get("/template", h.DownloadTemplate)

	return r
}

// Upload handles POST /api/financials with a multipart "file" field.
func (h *FinancialHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLargeProblem(h.maxBytes, r.URL.Path))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem(
			"file", "A spreadsheet file is required in the \"file\" field", r.URL.Path))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem(
			"file", fmt.Sprintf("Unsupported file type %q: upload .xlsx or .csv", ext), r.URL.Path))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLargeProblem(h.maxBytes, r.URL.Path))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sessionID := h.sessions.Ensure(w, r)
	result, err := h.service.Ingest(r.Context(), sessionID, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "upload accepted",
		slog.String("filename", header.Filename),
		slog.Int("rows", result.Rows))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// GetMetrics handles GET /api/financials/metrics
func (h *FinancialHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessions.Get(r)
	if !ok {
		h.errorHandler.HandleError(w, r, session.ErrNoData)
		return
	}

	m, err := h.service.Metrics(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, m)
}

// GetChart handles GET /api/financials/chart
func (h *FinancialHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessions.Get(r)
	if !ok {
		h.errorHandler.HandleError(w, r, session.ErrNoData)
		return
	}

	points, err := h.service.Chart(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, points)
}

// Clear handles DELETE /api/financials
func (h *FinancialHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.sessions.Get(r); ok {
		h.service.Clear(r.Context(), sessionID)
	}
	render.NoContent(w, r)
}

// DownloadTemplate handles GET /api/financials/template
func (h *FinancialHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := exporter.Template()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.TemplateFilename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
