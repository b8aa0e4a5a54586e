package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring pipeline and inference service.
type Metrics struct {
	ReadingsConsumed prometheus.Counter
	ReadingsScored   prometheus.Counter
	ScoreErrors      prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Data quality and anomaly metrics.
	SentinelReplacements prometheus.Counter
	AnomaliesDetected    *prometheus.CounterVec // label: severity={low,medium,high}
	DetectorLoaded       prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsConsumed,
		m.ReadingsScored,
		m.ScoreErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SentinelReplacements,
		m.AnomaliesDetected,
		m.DetectorLoaded,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "enviro_engine",
			Name:      "readings_consumed_total",
			Help:      "Total readings read from the source topic.",
		}),
		ReadingsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "enviro_engine",
			Name:      "readings_scored_total",
			Help:      "Total scored readings written to the sink topic.",
		}),
		ScoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "enviro_engine",
			Name:      "score_errors_total",
			Help:      "Total readings that failed scoring.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "enviro_engine",
			Name:      "pipeline_running",
			Help:      "1 when the scoring pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "enviro_engine",
			Name:      "batch_size",
			Help:      "Number of readings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "enviro_engine",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-score-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SentinelReplacements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "enviro_engine",
			Name:      "sentinel_replacements_total",
			Help:      "Total sentinel or missing values replaced with climatology defaults.",
		}),
		AnomaliesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enviro_engine",
			Name:      "anomalies_detected_total",
			Help:      "Readings flagged anomalous, by severity.",
		}, []string{"severity"}),
		DetectorLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "enviro_engine",
			Name:      "detector_loaded",
			Help:      "1 when a trained detector artifact is published, 0 otherwise.",
		}),
	}
}
