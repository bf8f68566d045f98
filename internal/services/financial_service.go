package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"saaspulse/internal/ingest"
	"saaspulse/internal/kpi"
	"saaspulse/internal/metrics"
	"saaspulse/internal/session"
	"saaspulse/pkg/contracts/domain"
)

// FinancialService orchestrates the upload pipeline: parse untrusted
// spreadsheet bytes, store the validated series in the session, and
// derive KPI snapshots on demand.
type FinancialService struct {
	parser   *ingest.Parser
	store    *session.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewFinancialService creates a financial service
func NewFinancialService(parser *ingest.Parser, store *session.Store, logger *slog.Logger) *FinancialService {
	return &FinancialService{
		parser:   parser,
		store:    store,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "financial_service")),
	}
}

// UploadResult summarizes an accepted upload.
type UploadResult struct {
	Rows    int               `json:"rows"`
	Metrics domain.KPIMetrics `json:"metrics"`
}

// Ingest parses an uploaded spreadsheet and replaces the session's
// stored series with the result. Parsing is all-or-nothing; on failure
// the session's previous data is left untouched.
func (s *FinancialService) Ingest(ctx context.Context, sessionID string, data []byte) (*UploadResult, error) {
	start := time.Now()
	records, err := s.parser.Parse(data)
	metrics.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.StatusRejected).Inc()
		return nil, err
	}

	// The ingestor already enforced the field policies; the struct
	// tags are a second line of defense against a policy drifting out
	// of sync with the domain contract.
	for i, rec := range records {
		if err := s.validate.StructCtx(ctx, rec); err != nil {
			metrics.UploadsTotal.WithLabelValues(metrics.StatusRejected).Inc()
			return nil, fmt.Errorf("record %d failed contract validation: %w", i+1, err)
		}
	}

	s.store.PutRecords(sessionID, records)
	metrics.UploadsTotal.WithLabelValues(metrics.StatusAccepted).Inc()
	metrics.RowsParsed.Observe(float64(len(records)))

	m, err := kpi.Compute(records)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "financial data ingested",
		slog.String("session_id", sessionID),
		slog.Int("rows", len(records)),
		slog.Duration("parse_duration", time.Since(start)))

	return &UploadResult{Rows: len(records), Metrics: m}, nil
}

// Metrics recomputes the KPI snapshot from the session's stored series.
func (s *FinancialService) Metrics(ctx context.Context, sessionID string) (domain.KPIMetrics, error) {
	records, err := s.store.Records(sessionID)
	if err != nil {
		return domain.KPIMetrics{}, err
	}
	return kpi.Compute(records)
}

// Chart returns the (date, revenue, net burn) projection of the
// session's stored series.
func (s *FinancialService) Chart(ctx context.Context, sessionID string) ([]domain.ChartPoint, error) {
	records, err := s.store.Records(sessionID)
	if err != nil {
		return nil, err
	}
	return kpi.ChartSeries(records), nil
}

// Clear drops the session's stored series.
func (s *FinancialService) Clear(ctx context.Context, sessionID string) {
	s.store.Delete(sessionID)
	s.logger.InfoContext(ctx, "financial data cleared",
		slog.String("session_id", sessionID))
}
