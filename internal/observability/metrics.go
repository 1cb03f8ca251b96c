package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// series pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: source, target, outcome={success,error,stale}
	RunDuration   prometheus.Histogram
	AdapterErrors *prometheus.CounterVec // labels: source, kind={schema,not_found,empty,io}

	ForecastDuration prometheus.Histogram
	ExportLocations  *prometheus.CounterVec // labels: source, outcome={success,error}

	SourcesLoaded      prometheus.Gauge
	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epi_pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by source, target, and outcome.",
		}, []string{"source", "target", "outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-canonicalize-model run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AdapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epi_pipeline",
			Name:      "adapter_errors_total",
			Help:      "Source adapter failures by source and error kind.",
		}, []string{"source", "kind"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_pipeline",
			Name:      "forecast_duration_seconds",
			Help:      "Duration of model training plus prediction.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ExportLocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epi_pipeline",
			Name:      "export_locations_total",
			Help:      "Per-location outcomes of batch exports.",
		}, []string{"source", "outcome"}),
		SourcesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epi_pipeline",
			Name:      "sources_loaded",
			Help:      "Number of sources registered from the catalog.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_pipeline",
			Name:      "snapshots_published_total",
			Help:      "Series snapshots written to the Kafka sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.AdapterErrors,
		m.ForecastDuration,
		m.ExportLocations,
		m.SourcesLoaded,
		m.SnapshotsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "epi_pipeline", Name: "runs_total"}, []string{"source", "target", "outcome"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_pipeline", Name: "run_duration_seconds"}),
		AdapterErrors:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "epi_pipeline", Name: "adapter_errors_total"}, []string{"source", "kind"}),
		ForecastDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_pipeline", Name: "forecast_duration_seconds"}),
		ExportLocations:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "epi_pipeline", Name: "export_locations_total"}, []string{"source", "outcome"}),
		SourcesLoaded:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "epi_pipeline", Name: "sources_loaded"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_pipeline", Name: "snapshots_published_total"}),
	}
}
