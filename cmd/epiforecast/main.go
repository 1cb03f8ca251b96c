// Command epiforecast serves the epidemiological series pipeline over HTTP:
// source listing, canonical series with statistics, forecasts, and CSV
// export, plus health, readiness, and metrics endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/epiforecast/epi-pipeline/internal/adapter/httpapi"
	kafkaadapter "github.com/epiforecast/epi-pipeline/internal/adapter/kafka"
	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/forecast"
	"github.com/epiforecast/epi-pipeline/internal/observability"
	"github.com/epiforecast/epi-pipeline/internal/pipeline"
	"github.com/epiforecast/epi-pipeline/internal/source"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		logger.Error("failed to load source catalog", "error", err, "path", cfg.SourcesFile)
		os.Exit(1)
	}

	registry, err := source.NewRegistry(catalog, source.BuildOptions{
		DataDir:          cfg.DataDir,
		MissingThreshold: cfg.MissingThreshold,
		SimulatedSeed:    cfg.ForestSeed,
	}, logger)
	if err != nil {
		logger.Error("failed to build source registry", "error", err)
		os.Exit(1)
	}
	metrics.SourcesLoaded.Set(float64(registry.Len()))

	engine := forecast.NewEngine(forecast.Params{
		Trees:           cfg.ForestTrees,
		Seed:            cfg.ForestSeed,
		MinTrainingRows: cfg.MinTrainingRows,
		MinHorizon:      cfg.MinForecastDays,
		MaxHorizon:      cfg.MaxForecastDays,
		DefaultHorizon:  cfg.DefaultForecastDays,
		LongHorizon:     cfg.LongForecastDays,
	})

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka snapshot publishing enabled",
			"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka snapshot publishing disabled")
	}

	p := pipeline.New(registry, engine, publisher, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
