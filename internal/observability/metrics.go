// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Calibration metrics
	SegmentsCalibrated  *prometheus.CounterVec
	CalibrationFallback *prometheus.CounterVec
	BootstrapResamples  prometheus.Counter
	ElasticityEstimate  *prometheus.GaugeVec
	ElasticityStdErr    *prometheus.GaugeVec

	// Simulation metrics
	ScenariosGenerated prometheus.Counter
	ScenariosEvaluated *prometheus.CounterVec // by risk flag
	StressRuns         prometheus.Counter
	BestRevenueUplift  prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fee_elasticity_lab"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Calibration metrics
		SegmentsCalibrated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "segments_total",
			Help:      "Total number of segment calibrations",
		}, []string{"segment"}),
		CalibrationFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "fallbacks_total",
			Help:      "Calibrations that used the sparse-sample fallback elasticity",
		}, []string{"segment"}),
		BootstrapResamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "bootstrap_resamples_total",
			Help:      "Total number of bootstrap refits",
		}),
		ElasticityEstimate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "elasticity_beta",
			Help:      "Latest calibrated elasticity per segment",
		}, []string{"segment"}),
		ElasticityStdErr: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "elasticity_stderr",
			Help:      "Latest bootstrap standard error per segment",
		}, []string{"segment"}),

		// Simulation metrics
		ScenariosGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "scenarios_generated_total",
			Help:      "Total number of candidate fee schedules generated",
		}),
		ScenariosEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "scenarios_evaluated_total",
			Help:      "Total number of evaluated scenarios by risk flag",
		}, []string{"risk_flag"}),
		StressRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "stress_runs_total",
			Help:      "Total number of stress evaluations",
		}),
		BestRevenueUplift: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "best_revenue_uplift_pct",
			Help:      "Revenue uplift of the top-ranked scenario in the latest run",
		}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline stage runs",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"phase"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultMetrics.registry, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSegmentCalibrated records one segment calibration on DefaultMetrics.
func RecordSegmentCalibrated(segment string, beta, stdErr float64, fallback bool, resamples int) {
	DefaultMetrics.RecordSegmentCalibrated(segment, beta, stdErr, fallback, resamples)
}

// RecordSegmentCalibrated records one segment calibration.
// stdErr is ignored when NaN (fallback estimates have no standard error).
func (m *Metrics) RecordSegmentCalibrated(segment string, beta, stdErr float64, fallback bool, resamples int) {
	m.SegmentsCalibrated.WithLabelValues(segment).Inc()
	m.ElasticityEstimate.WithLabelValues(segment).Set(beta)
	if fallback {
		m.CalibrationFallback.WithLabelValues(segment).Inc()
		return
	}
	if !math.IsNaN(stdErr) {
		m.ElasticityStdErr.WithLabelValues(segment).Set(stdErr)
	}
	m.BootstrapResamples.Add(float64(resamples))
}

// RecordScenariosGenerated adds n generated scenarios.
func RecordScenariosGenerated(n int) {
	DefaultMetrics.ScenariosGenerated.Add(float64(n))
}

// RecordScenarioEvaluated records one evaluated scenario.
func RecordScenarioEvaluated(riskFlag string) {
	DefaultMetrics.ScenariosEvaluated.WithLabelValues(riskFlag).Inc()
}

// RecordStressRun records one stress evaluation.
func RecordStressRun() {
	DefaultMetrics.StressRuns.Inc()
}

// UpdateBestRevenueUplift sets the top-ranked uplift gauge.
func UpdateBestRevenueUplift(pct float64) {
	DefaultMetrics.BestRevenueUplift.Set(pct)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}
