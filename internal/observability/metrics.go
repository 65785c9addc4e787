package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL
// run. The job exits when done, so metrics live on a private registry that is
// flushed to a node_exporter textfile rather than scraped.
type Metrics struct {
	registry *prometheus.Registry

	// Source metrics.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source
	WorkbookCandidates  *prometheus.CounterVec   // labels: outcome={success,error}

	// Data quality metrics.
	RowsNormalized      *prometheus.CounterVec // labels: metric
	JoinMismatches      *prometheus.CounterVec // labels: source
	IndeterminateValues *prometheus.CounterVec // labels: indicator
	CorrectionsApplied  prometheus.Counter

	// Run metrics.
	RowsWritten   *prometheus.CounterVec   // labels: sink
	StageDuration *prometheus.HistogramVec // labels: pipeline, stage
	RunFailures   *prometheus.CounterVec   // labels: pipeline, stage
	LastSuccess   *prometheus.GaugeVec     // labels: pipeline
}

// NewMetrics creates all run metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source downloads by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source download duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		WorkbookCandidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbook_candidates_total",
			Help:      "Dated workbook names tried during the backward search.",
		}, []string{"outcome"}),
		RowsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_normalized_total",
			Help:      "Region-day rows produced by normalization per metric.",
		}, []string{"metric"}),
		JoinMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_mismatches_total",
			Help:      "Keys that failed to match during reconciliation.",
		}, []string{"source"}),
		IndeterminateValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indeterminate_values_total",
			Help:      "Indicator values left missing by a zero or missing denominator.",
		}, []string{"indicator"}),
		CorrectionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrections_applied_total",
			Help:      "Override rows applied to source data.",
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Output rows written per sink.",
		}, []string{"sink"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"pipeline", "stage"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Stage failures by pipeline and stage. Publish failures do not fail the run.",
		}, []string{"pipeline", "stage"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"pipeline"}),
	}

	reg.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.WorkbookCandidates,
		m.RowsNormalized,
		m.JoinMismatches,
		m.IndeterminateValues,
		m.CorrectionsApplied,
		m.RowsWritten,
		m.StageDuration,
		m.RunFailures,
		m.LastSuccess,
	)

	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry so tests never
// share state.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// WriteTextfile writes every metric in the node_exporter textfile format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
