package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"saaspulse/internal/config"
	"saaspulse/pkg/contracts/domain"
)

// InsightService turns a KPI snapshot into free-text commentary. When a
// hosted text-generation endpoint is configured the serialized metrics
// are sent there; otherwise (or when the backend is unreachable) a
// deterministic rule-based fallback keeps the dashboard supplied with
// prose.
type InsightService struct {
	cfg    config.InsightsConfig
	client *http.Client
	logger *slog.Logger
}

// NewInsightService creates an insight service
func NewInsightService(cfg config.InsightsConfig, logger *slog.Logger) *InsightService {
	return &InsightService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "insight_service")),
	}
}

// insightRequest is the payload sent to the hosted endpoint.
type insightRequest struct {
	Metrics domain.KPIMetrics `json:"metrics"`
}

// insightResponse is the expected response shape. Backends that return
// plain text are handled by the caller.
type insightResponse struct {
	Insight string `json:"insight"`
}

// Generate produces commentary for a KPI snapshot.
func (s *InsightService) Generate(ctx context.Context, m domain.KPIMetrics) (string, error) {
	if s.cfg.Endpoint == "" {
		return localCommentary(m), nil
	}

	text, err := s.callBackend(ctx, m)
	if err != nil {
		s.logger.WarnContext(ctx, "insight backend unavailable, using fallback",
			slog.String("endpoint", s.cfg.Endpoint),
			slog.String("error", err.Error()))
		return localCommentary(m), nil
	}
	return text, nil
}

func (s *InsightService) callBackend(ctx context.Context, m domain.KPIMetrics) (string, error) {
	body, err := json.Marshal(insightRequest{Metrics: m})
	if err != nil {
		return "", fmt.Errorf("failed to serialize metrics: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build insight request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("insight request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("insight backend returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read insight response: %w", err)
	}

	// There is no contract on the response beyond plain prose; accept
	// either {"insight": "..."} or a raw text body.
	var parsed insightResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Insight != "" {
		return parsed.Insight, nil
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("insight backend returned an empty response")
	}
	return text, nil
}

// localCommentary builds deterministic prose from the snapshot.
func localCommentary(m domain.KPIMetrics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Monthly recurring revenue sits at %.0f", m.MRR.Value)
	switch {
	case m.MRR.Change > 0:
		fmt.Fprintf(&b, ", up %.1f%% month over month. ", m.MRR.Change)
	case m.MRR.Change < 0:
		fmt.Fprintf(&b, ", down %.1f%% month over month. ", -m.MRR.Change)
	default:
		b.WriteString(", flat month over month. ")
	}

	if m.BurnRate.Value <= 0 {
		b.WriteString("The business is cash-flow positive this period. ")
	} else {
		fmt.Fprintf(&b, "Net burn is %.0f this period", m.BurnRate.Value)
		if m.Runway.Months >= 999 {
			b.WriteString(", but the average burn trend leaves runway effectively unconstrained. ")
		} else {
			fmt.Fprintf(&b, ", leaving roughly %.1f months of runway at the historical average burn. ", m.Runway.Months)
		}
	}

	if m.ChurnRate.Value > 5 {
		fmt.Fprintf(&b, "Churn of %.1f%% is above the 5%% comfort line and deserves attention. ", m.ChurnRate.Value)
	} else {
		fmt.Fprintf(&b, "Churn is holding at %.1f%%. ", m.ChurnRate.Value)
	}

	switch {
	case m.LTVCACRatio.Value >= 3:
		fmt.Fprintf(&b, "An LTV/CAC ratio of %.1f suggests acquisition spend is paying for itself.", m.LTVCACRatio.Value)
	case m.LTVCACRatio.Value > 0:
		fmt.Fprintf(&b, "An LTV/CAC ratio of %.1f is below the 3x rule of thumb; acquisition efficiency is worth a look.", m.LTVCACRatio.Value)
	default:
		b.WriteString("LTV/CAC could not be derived from the current period.")
	}

	return b.String()
}
