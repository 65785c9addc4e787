package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

// Pipeline names.
const (
	CohortPipeline       = "cohorts"
	JurisdictionPipeline = "jurisdiction"
)

// CohortTransformer builds the cohort comparison table.
// It implements Transformer[domain.CohortSources, domain.Table].
type CohortTransformer struct {
	settings domain.CohortSettings
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewCohortTransformer creates a CohortTransformer.
func NewCohortTransformer(settings domain.CohortSettings, logger *slog.Logger, metrics *observability.Metrics) *CohortTransformer {
	return &CohortTransformer{settings: settings, logger: logger, metrics: metrics}
}

func (t *CohortTransformer) Transform(_ context.Context, src domain.CohortSources) (domain.Table, error) {
	report, err := domain.BuildCohortReport(src, t.settings)
	if err != nil {
		return domain.Table{}, err
	}
	recordDiagnostics(report.Diagnostics, t.logger, t.metrics)
	t.logger.Info("cohort table built",
		"cohorts", len(t.settings.Cohorts),
		"rows", len(report.Table.Rows),
		"data_through", report.Table.LastDate().Format(time.DateOnly),
	)
	return report.Table, nil
}

// JurisdictionTransformer builds the daily jurisdiction table.
// It implements Transformer[domain.Sheet, domain.Table].
type JurisdictionTransformer struct {
	settings domain.JurisdictionSettings
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewJurisdictionTransformer creates a JurisdictionTransformer.
func NewJurisdictionTransformer(settings domain.JurisdictionSettings, logger *slog.Logger, metrics *observability.Metrics) *JurisdictionTransformer {
	return &JurisdictionTransformer{settings: settings, logger: logger, metrics: metrics}
}

func (t *JurisdictionTransformer) Transform(_ context.Context, sheet domain.Sheet) (domain.Table, error) {
	report, err := domain.BuildJurisdictionReport(sheet, t.settings)
	if err != nil {
		return domain.Table{}, err
	}
	recordDiagnostics(report.Diagnostics, t.logger, t.metrics)
	t.logger.Info("data through",
		"date", report.Table.LastDate().Format(time.DateOnly),
		"sheet", sheet.Name,
		"rows", len(report.Table.Rows),
	)
	return report.Table, nil
}

func recordDiagnostics(d domain.Diagnostics, logger *slog.Logger, metrics *observability.Metrics) {
	for metric, n := range d.NormalizedRows {
		metrics.RowsNormalized.WithLabelValues(metric).Add(float64(n))
	}
	if len(d.UnmatchedAbbreviations) > 0 {
		metrics.JoinMismatches.WithLabelValues("hospital").Add(float64(len(d.UnmatchedAbbreviations)))
		logger.Warn("hospital abbreviations missing from bridge", "abbreviations", d.UnmatchedAbbreviations)
	}
	for indicator, n := range d.Indeterminate {
		if n == 0 {
			continue
		}
		metrics.IndeterminateValues.WithLabelValues(indicator).Add(float64(n))
		logger.Debug("indeterminate values", "indicator", indicator, "count", n)
	}
	if len(d.MissingPopulation) > 0 {
		metrics.JoinMismatches.WithLabelValues("population").Add(float64(len(d.MissingPopulation)))
		logger.Warn("cohort regions missing from population table", "regions", d.MissingPopulation)
	}
	for _, c := range d.Corrections {
		metrics.CorrectionsApplied.Inc()
		logger.Info("correction applied",
			"date", c.Date.Format(time.DateOnly),
			"field", c.Field,
			"value", c.Value,
			"reason", c.Reason,
		)
	}
}
