package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

// Stage names used in logs and metric labels.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
	StagePublish   = "publish"
)

// Extractor fetches every raw input of one job.
type Extractor[In any] interface {
	Extract(ctx context.Context) (In, error)
}

// Transformer turns the raw input into the output table.
type Transformer[In, Out any] interface {
	Transform(ctx context.Context, in In) (Out, error)
}

// Loader writes the output to a destination.
type Loader[Out any] interface {
	Load(ctx context.Context, out Out) error
}

// Loaders runs each loader in order and stops at the first failure.
type Loaders[Out any] []Loader[Out]

// Load implements Loader.
func (ls Loaders[Out]) Load(ctx context.Context, out Out) error {
	for _, l := range ls {
		if err := l.Load(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// BestEffort wraps an optional sink. Its failures are logged and counted
// under StagePublish but never fail the run, so output already committed by
// earlier loaders stands.
type BestEffort[Out any] struct {
	pipeline string
	sink     string
	loader   Loader[Out]
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewBestEffort wraps l as a non-fatal sink of the named pipeline.
func NewBestEffort[Out any](pipeline, sink string, l Loader[Out], logger *slog.Logger, metrics *observability.Metrics) *BestEffort[Out] {
	return &BestEffort[Out]{pipeline: pipeline, sink: sink, loader: l, logger: logger, metrics: metrics}
}

// Load implements Loader. It returns an error only when ctx is cancelled.
func (b *BestEffort[Out]) Load(ctx context.Context, out Out) error {
	err := b.loader.Load(ctx, out)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	b.metrics.RunFailures.WithLabelValues(b.pipeline, StagePublish).Inc()
	b.logger.Error("optional sink failed", "pipeline", b.pipeline, "sink", b.sink, "error", err)
	return nil
}

// StageError reports which stage of a run failed.
type StageError struct {
	Pipeline string
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Pipeline, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs one extract-transform-load pass to completion. Nothing is
// loaded unless extract and transform both succeed.
type Pipeline[In, Out any] struct {
	name        string
	extractor   Extractor[In]
	transformer Transformer[In, Out]
	loader      Loader[Out]
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New[In, Out any](name string, e Extractor[In], t Transformer[In, Out], l Loader[Out], logger *slog.Logger, metrics *observability.Metrics) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{
		name:        name,
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger.With("pipeline", name),
		metrics:     metrics,
	}
}

// Run executes extract, transform, and load once. A failed stage is returned
// as a *StageError and later stages are skipped.
func (p *Pipeline[In, Out]) Run(ctx context.Context) error {
	start := time.Now()
	p.logger.Info("pipeline started")

	in, err := timed(p, StageExtract, func() (In, error) {
		return p.extractor.Extract(ctx)
	})
	if err != nil {
		return err
	}

	out, err := timed(p, StageTransform, func() (Out, error) {
		return p.transformer.Transform(ctx, in)
	})
	if err != nil {
		return err
	}

	if _, err := timed(p, StageLoad, func() (struct{}, error) {
		return struct{}{}, p.loader.Load(ctx, out)
	}); err != nil {
		return err
	}

	p.metrics.LastSuccess.WithLabelValues(p.name).SetToCurrentTime()
	p.logger.Info("pipeline finished", "duration", time.Since(start))
	return nil
}

// timed runs one stage, recording its duration and failure.
func timed[In, Out, T any](p *Pipeline[In, Out], stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	p.metrics.StageDuration.WithLabelValues(p.name, stage).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.RunFailures.WithLabelValues(p.name, stage).Inc()
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		p.logger.Log(context.Background(), level, "stage failed", "stage", stage, "error", err)
		var zero T
		return zero, &StageError{Pipeline: p.name, Stage: stage, Err: err}
	}
	p.logger.Debug("stage finished", "stage", stage, "duration", time.Since(start))
	return v, nil
}
