// Package metrics exposes Prometheus instrumentation for the upload
// and KPI pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UploadsTotal counts spreadsheet uploads by outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saaspulse_uploads_total",
		Help: "Spreadsheet uploads by outcome.",
	}, []string{"status"})

	// ParseDuration observes how long spreadsheet parsing takes.
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "saaspulse_parse_duration_seconds",
		Help:    "Time spent parsing an uploaded spreadsheet.",
		Buckets: prometheus.DefBuckets,
	})

	// RowsParsed observes how many records each accepted upload carried.
	RowsParsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "saaspulse_rows_parsed",
		Help:    "Validated rows per accepted upload.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
)

// Upload outcome labels.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// RegisterSessionGauge exports the live session count from the store.
func RegisterSessionGauge(count func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "saaspulse_active_sessions",
		Help: "Sessions currently holding financial data.",
	}, count)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
