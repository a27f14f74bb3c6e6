package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend request metrics
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receitas_translation_requests_total",
			Help: "Total number of translation backend requests",
		},
		[]string{"engine", "status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receitas_translation_request_duration_seconds",
			Help:    "Duration of translation backend requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"engine", "status"},
	)

	translationRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receitas_translation_request_size_chars",
			Help:    "Length of translation request text in characters",
			Buckets: []float64{10, 25, 50, 100, 200, 300, 500},
		},
		[]string{"engine"},
	)

	// Chunked translation metrics
	translationUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receitas_translation_units_total",
			Help: "Translation units by outcome (translated, fallback, skipped)",
		},
		[]string{"engine", "outcome"},
	)

	chunkedTranslationUnits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receitas_chunked_translation_units",
			Help:    "Number of units a single text was split into",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"engine"},
	)
)

// MetricsCollector records metrics for one translation engine.
type MetricsCollector struct {
	engine string
}

// NewMetricsCollector creates a new metrics collector for an engine.
func NewMetricsCollector(engine string) *MetricsCollector {
	return &MetricsCollector{engine: engine}
}

// RecordTranslationRequest records metrics for a backend request.
func (mc *MetricsCollector) RecordTranslationRequest(duration time.Duration, success bool, requestSize int) {
	status := "success"
	if !success {
		status = "error"
	}

	translationRequestsTotal.WithLabelValues(mc.engine, status).Inc()
	translationRequestDuration.WithLabelValues(mc.engine, status).Observe(duration.Seconds())
	translationRequestSize.WithLabelValues(mc.engine).Observe(float64(requestSize))
}

// RecordOutcome counts a finished unit.
func (mc *MetricsCollector) RecordOutcome(kind OutcomeKind) {
	translationUnitsTotal.WithLabelValues(mc.engine, kind.String()).Inc()
}

// RecordSegmentation records how many units a text was split into.
func (mc *MetricsCollector) RecordSegmentation(units int) {
	chunkedTranslationUnits.WithLabelValues(mc.engine).Observe(float64(units))
}
