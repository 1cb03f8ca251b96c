// Command exportall runs the pipeline offline and writes one enriched CSV
// per source and target, every location concatenated. It reuses the service
// configuration, so the same environment that runs the server drives batch
// exports.
//
// Usage:
//
//	go run ./cmd/exportall -out exports
//	go run ./cmd/exportall -out exports -source covid -target cases
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/forecast"
	"github.com/epiforecast/epi-pipeline/internal/observability"
	"github.com/epiforecast/epi-pipeline/internal/pipeline"
	"github.com/epiforecast/epi-pipeline/internal/source"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for exported CSV files")
	sourceName := flag.String("source", "", "export a single source (default all)")
	targetName := flag.String("target", "", "export a single target (default all the source reports)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("load source catalog: %w", err)
	}
	registry, err := source.NewRegistry(catalog, source.BuildOptions{
		DataDir:          cfg.DataDir,
		MissingThreshold: cfg.MissingThreshold,
		SimulatedSeed:    cfg.ForestSeed,
	}, logger)
	if err != nil {
		return fmt.Errorf("build source registry: %w", err)
	}

	p := pipeline.New(registry, forecast.NewEngine(forecast.Params{
		Trees:           cfg.ForestTrees,
		Seed:            cfg.ForestSeed,
		MinTrainingRows: cfg.MinTrainingRows,
	}), nil, logger, observability.NewMetrics())

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	names := registry.Names()
	if *sourceName != "" {
		names = []string{*sourceName}
	}

	for _, name := range names {
		src, err := registry.Get(name)
		if err != nil {
			return err
		}
		targets := src.Targets()
		if *targetName != "" {
			target, err := domain.ParseTargetKind(*targetName)
			if err != nil {
				return err
			}
			targets = []domain.TargetKind{target}
		}

		for _, target := range targets {
			table, failures, err := p.ExportAll(ctx, name, target)
			if err != nil {
				return fmt.Errorf("export %s/%s: %w", name, target, err)
			}
			for _, f := range failures {
				log.Printf("skipped %s/%s location %s: %s", name, target, f.Location, f.Reason)
			}
			path := filepath.Join(*out, fmt.Sprintf("%s_%s.csv", name, target))
			if err := table.WriteCSVFile(path); err != nil {
				return err
			}
			log.Printf("wrote %s (%d rows, %d locations skipped)", path, table.NumRows(), len(failures))
		}
	}
	return nil
}
