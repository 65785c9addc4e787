package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/covid-cohort-etl/internal/config"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
	"github.com/couchcryptid/covid-cohort-etl/internal/pipeline"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "covid-etl",
		Short: "Build COVID-19 comparison tables from public data sources",
		Long: `Downloads public COVID-19 data and writes analysis-ready CSV tables.

Configuration comes from environment variables; every default reproduces the
reference run, so no variables are required.`,
		Example: `  # Per-capita cohort comparison (cohort_be.csv)
  $ covid-etl cohorts

  # Daily District of Columbia table (dc.csv)
  $ covid-etl jurisdiction`,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		jobCmd(pipeline.CohortPipeline, "Write the cohort comparison table", buildCohortJob),
		jobCmd(pipeline.JurisdictionPipeline, "Write the daily jurisdiction table", buildJurisdictionJob),
	)
	return root
}

func jobCmd(name, short string, build jobBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Failures past this point are already logged.
			cmd.SilenceErrors = true
			return runJob(cmd.Context(), name, build)
		},
	}
}

func runJob(parent context.Context, name string, build jobBuilder) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID, "job", name)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j := build(cfg, runID, logger, metrics)
	runErr := j.runner.Run(ctx)

	shutdown(cfg.ShutdownTimeout, j.closers, logger)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile error", "error", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("run interrupted")
		} else {
			logger.Error("run failed", "error", runErr)
		}
		return runErr
	}
	logger.Info("run complete")
	return nil
}

// shutdown closes sinks in order, giving up after timeout.
func shutdown(timeout time.Duration, closers []closer, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, c := range closers {
			if err := c.close(); err != nil {
				logger.Error(c.name+" close error", "error", err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("shutdown timed out", "timeout", timeout)
	}
}
