package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "saaspulse/internal/errors"
	"saaspulse/internal/session"
	"saaspulse/pkg/contracts/domain"
)

// InsightServiceInterface generates commentary from a KPI snapshot.
type InsightServiceInterface interface {
	Generate(ctx context.Context, m domain.KPIMetrics) (string, error)
}

// InsightHandler serves generated dashboard commentary.
type InsightHandler struct {
	financials   FinancialServiceInterface
	insights     InsightServiceInterface
	sessions     *SessionCookie
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(financials FinancialServiceInterface, insights InsightServiceInterface, sessions *SessionCookie, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *InsightHandler {
	return &InsightHandler{
		financials:   financials,
		insights:     insights,
		sessions:     sessions,
		logger:       logger.With(slog.String("component", "insight_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the insight routes
func (h *InsightHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Generate)
	return r
}

// InsightResponse carries the generated prose.
type InsightResponse struct {
	Insight string `json:"insight"`
}

// Generate handles POST /api/insights for the current session's metrics.
func (h *InsightHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessions.Get(r)
	if !ok {
		h.errorHandler.HandleError(w, r, session.ErrNoData)
		return
	}

	m, err := h.financials.Metrics(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	text, err := h.insights.Generate(r.Context(), m)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, InsightResponse{Insight: text})
}
