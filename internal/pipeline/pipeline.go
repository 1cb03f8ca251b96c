// Package pipeline orchestrates a full series run: extract raw rows from a
// source adapter, build the canonical daily series, summarize it, and train
// and apply the forecast model. Results are cached per (source, location,
// target) with sequence tags so stale async completions are discarded.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/epiforecast/epi-pipeline/internal/canonical"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/forecast"
	"github.com/epiforecast/epi-pipeline/internal/observability"
	"github.com/epiforecast/epi-pipeline/internal/source"
	"github.com/epiforecast/epi-pipeline/internal/stats"
)

// Publisher pushes completed canonical series to an external sink. Optional;
// a nil publisher disables publishing.
type Publisher interface {
	Publish(ctx context.Context, s domain.CanonicalSeries) error
}

// Request asks for one series run.
type Request struct {
	ID       uuid.UUID
	Source   string
	Location string
	Target   domain.TargetKind

	// Horizon in days; 0 uses the engine default.
	Horizon int

	// SkipForecast stops after statistics, for callers that only display
	// the historical series.
	SkipForecast bool
}

// Result is the complete output of one run.
type Result struct {
	Request Request
	Seq     uint64

	Series domain.CanonicalSeries
	Stats  domain.SummaryStats

	Forecast      domain.ForecastSeries
	ForecastStats domain.ForecastStats
}

// Pipeline wires the registry, the model engine, and the optional publisher.
type Pipeline struct {
	registry  *source.Registry
	engine    *forecast.Engine
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	store *resultStore
	ready atomic.Bool
}

// New creates a Pipeline. publisher may be nil.
func New(registry *source.Registry, engine *forecast.Engine, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		registry:  registry,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		store:     newResultStore(),
	}
}

// Registry exposes the source registry for listing endpoints.
func (p *Pipeline) Registry() *source.Registry { return p.registry }

// CheckReadiness returns nil once at least one run has completed, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no series run has completed yet")
	}
	return nil
}

// Process runs a request synchronously. The result is returned to the caller
// either way; it only enters the cache if no newer request for the same key
// was issued meanwhile.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	key := seriesKey{source: req.Source, location: req.Location, target: req.Target}
	seq := p.store.issue(key)
	result, _, err := p.run(ctx, req, key, seq)
	return result, err
}

// Submit runs a request asynchronously. The callback receives the result or
// error; it is never invoked for a run that went stale, only the freshest
// request per key reports back.
func (p *Pipeline) Submit(ctx context.Context, req Request, callback func(*Result, error)) {
	key := seriesKey{source: req.Source, location: req.Location, target: req.Target}
	seq := p.store.issue(key)

	go func() {
		result, stored, err := p.run(ctx, req, key, seq)
		if err == nil && !stored {
			return // superseded mid-run
		}
		callback(result, err)
	}()
}

// Latest returns the newest completed result for a (source, location, target)
// triple, if one exists.
func (p *Pipeline) Latest(sourceName, location string, target domain.TargetKind) (*Result, bool) {
	return p.store.latest(seriesKey{source: sourceName, location: location, target: target})
}

// run executes the stages and reports whether the result entered the cache.
func (p *Pipeline) run(ctx context.Context, req Request, key seriesKey, seq uint64) (*Result, bool, error) {
	start := time.Now()
	logger := p.logger.With(
		"request_id", req.ID,
		"source", req.Source,
		"location", req.Location,
		"target", req.Target,
	)

	result, err := p.build(ctx, req, logger)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(req.Source, string(req.Target), "error").Inc()
		logger.Warn("series run failed", "error", err)
		return nil, false, err
	}
	result.Seq = seq

	if !p.store.complete(key, seq, result) {
		p.metrics.RunsTotal.WithLabelValues(req.Source, string(req.Target), "stale").Inc()
		logger.Info("series run superseded, result dropped", "seq", seq)
		return result, false, nil
	}

	p.metrics.RunsTotal.WithLabelValues(req.Source, string(req.Target), "success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.publish(ctx, logger, result.Series)

	logger.Info("series run complete",
		"rows", result.Series.Len(),
		"risk", result.Stats.Risk,
		"duration", time.Since(start),
	)
	return result, true, nil
}

func (p *Pipeline) build(ctx context.Context, req Request, logger *slog.Logger) (*Result, error) {
	src, err := p.registry.Get(req.Source)
	if err != nil {
		return nil, err
	}

	raw, err := src.Extract(req.Location, req.Target)
	if err != nil {
		p.metrics.AdapterErrors.WithLabelValues(req.Source, errorKind(err)).Inc()
		return nil, err
	}

	series, err := canonical.Build(req.Source, req.Location, req.Target, raw)
	if err != nil {
		p.metrics.AdapterErrors.WithLabelValues(req.Source, errorKind(err)).Inc()
		return nil, err
	}
	logger.Debug("series built",
		"raw_rows", raw.NumRows(),
		"daily_rows", series.Len(),
		"weekly_cadence", series.WeeklyCadence,
	)

	result := &Result{
		Request: req,
		Series:  series,
		Stats:   stats.Summarize(series),
	}
	if req.SkipForecast {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	modelStart := time.Now()
	model, err := p.engine.Train(series)
	if err != nil {
		return nil, err
	}
	result.Forecast, err = p.engine.Forecast(model, req.Horizon)
	if err != nil {
		return nil, err
	}
	p.metrics.ForecastDuration.Observe(time.Since(modelStart).Seconds())

	if result.Forecast.LongHorizon {
		logger.Warn("long forecast horizon, accuracy degrades beyond half a year",
			"horizon_days", result.Forecast.Horizon)
	}

	result.ForecastStats = stats.SummarizeForecast(result.Forecast)
	return result, nil
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, s domain.CanonicalSeries) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, s); err != nil {
		logger.Warn("snapshot publish failed", "error", err)
		return
	}
	p.metrics.SnapshotsPublished.Inc()
}

// errorKind buckets adapter and build failures for the error counter.
func errorKind(err error) string {
	var (
		schema   *domain.SchemaError
		notFound *domain.NotFoundError
		empty    *domain.EmptyResultError
	)
	switch {
	case errors.As(err, &schema):
		return "schema"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &empty):
		return "empty"
	default:
		return "io"
	}
}
