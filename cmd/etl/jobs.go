package main

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/covid-cohort-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/covid-cohort-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-cohort-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-cohort-etl/internal/config"
	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
	"github.com/couchcryptid/covid-cohort-etl/internal/pipeline"
)

type runner interface {
	Run(ctx context.Context) error
}

type closer struct {
	name  string
	close func() error
}

// job is a wired pipeline plus the sinks to close once it finishes.
type job struct {
	runner  runner
	closers []closer
}

type jobBuilder func(cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics) job

// sinks returns the CSV writer followed by the Kafka publisher when brokers
// are configured. The CSV file is the committed output; publishing is best
// effort and cannot fail a run whose file is already in place.
func sinks(cfg *config.Config, name, filename, runID string, logger *slog.Logger, metrics *observability.Metrics) (pipeline.Loaders[domain.Table], []closer) {
	loaders := pipeline.Loaders[domain.Table]{csvfile.NewWriter(cfg.OutputDir, filename, logger, metrics)}
	var closers []closer
	if cfg.KafkaEnabled() {
		w := kafka.NewWriter(cfg, runID, logger, metrics)
		loaders = append(loaders, pipeline.NewBestEffort[domain.Table](name, "kafka", w, logger, metrics))
		closers = append(closers, closer{name: "kafka writer", close: w.Close})
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}
	return loaders, closers
}

func buildCohortJob(cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics) job {
	client := source.NewClient(cfg.HTTPTimeout, logger, metrics)
	extractor := source.NewCohortExtractor(client, source.CohortURLs{
		Cases:            cfg.CasesURL,
		Deaths:           cfg.DeathsURL,
		Hospital:         cfg.HospitalURL,
		Population:       cfg.PopulationURL,
		PopulationColumn: cfg.PopulationColumn,
		Bridge:           cfg.BridgeURL,
	})
	transformer := pipeline.NewCohortTransformer(domain.CohortSettings{
		Cohorts:         cfg.Cohorts,
		ExcludedRegions: cfg.ExcludedRegions,
		RegionColumn:    cfg.RegionColumn,
		Window:          cfg.MovingAverageDays,
		Start:           cfg.CohortStart,
	}, logger, metrics)
	loaders, closers := sinks(cfg, pipeline.CohortPipeline, cfg.CohortOutputFile, runID, logger, metrics)

	return job{
		runner:  pipeline.New[domain.CohortSources, domain.Table](pipeline.CohortPipeline, extractor, transformer, loaders, logger, metrics),
		closers: closers,
	}
}

func buildJurisdictionJob(cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics) job {
	client := source.NewClient(cfg.HTTPTimeout, logger, metrics)
	fetcher := source.NewWorkbookFetcher(client, cfg.WorkbookURLTemplate, cfg.WorkbookSheets,
		domain.SearchPolicy{LookbackDays: cfg.WorkbookLookbackDays, Layouts: cfg.WorkbookDateLayouts},
		logger, metrics)
	transformer := pipeline.NewJurisdictionTransformer(domain.JurisdictionSettings{
		LabelColumn: cfg.WorkbookLabelColumn,
		Start:       cfg.JurisdictionStart,
		Corrections: domain.JurisdictionCorrections,
	}, logger, metrics)
	loaders, closers := sinks(cfg, pipeline.JurisdictionPipeline, cfg.JurisdictionOutputFile, runID, logger, metrics)

	return job{
		runner:  pipeline.New[domain.Sheet, domain.Table](pipeline.JurisdictionPipeline, source.NewJurisdictionExtractor(fetcher), transformer, loaders, logger, metrics),
		closers: closers,
	}
}
