package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/forecast"
	"github.com/epiforecast/epi-pipeline/internal/observability"
	"github.com/epiforecast/epi-pipeline/internal/source"
)

// mockCovidCSV builds a snapshot with 60 daily rows each for the named
// healthy locations plus one "Badland" whose dates never parse.
func mockCovidCSV(locations ...string) string {
	var b strings.Builder
	b.WriteString("location,date,new_cases,new_deaths\n")
	for _, loc := range locations {
		for d := 0; d < 60; d++ {
			fmt.Fprintf(&b, "%s,2024-01-%02d,%d,%d\n", loc, d%31+1, 10+d, d%3)
		}
	}
	for d := 0; d < 5; d++ {
		fmt.Fprintf(&b, "Badland,not-a-date-%d,10,1\n", d)
	}
	return b.String()
}

// mockCovidDailyCSV builds one location with clean consecutive daily rows.
func mockCovidDailyCSV(location string, days int) string {
	var b strings.Builder
	b.WriteString("location,date,new_cases,new_deaths\n")
	start := 0
	for d := 0; d < days; d++ {
		fmt.Fprintf(&b, "%s,%s,%d,%d\n", location,
			fmt.Sprintf("2024-%02d-%02d", d/28+1, d%28+1), 100+start+d, d%2)
	}
	return b.String()
}

func newTestPipeline(t *testing.T, csv string, publisher Publisher) *Pipeline {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "covid.csv"), []byte(csv), 0o644))

	cat := &config.Catalog{Sources: []config.SourceSpec{
		{Name: "covid", Adapter: "covid", File: "covid.csv"},
	}}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	registry, err := source.NewRegistry(cat, source.BuildOptions{
		DataDir:          dir,
		MissingThreshold: 0.4,
		SimulatedSeed:    42,
	}, logger)
	require.NoError(t, err)

	params := forecast.DefaultParams()
	params.Trees = 10
	engine := forecast.NewEngine(params)

	return New(registry, engine, publisher, logger, observability.NewMetricsForTesting())
}

// capturingPublisher records published series; fail makes every call error.
type capturingPublisher struct {
	mu     sync.Mutex
	series []domain.CanonicalSeries
	fail   bool
}

func (c *capturingPublisher) Publish(_ context.Context, s domain.CanonicalSeries) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("sink unavailable")
	}
	c.series = append(c.series, s)
	return nil
}

func (c *capturingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.series)
}
