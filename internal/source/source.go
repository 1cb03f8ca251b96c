// Package source adapts heterogeneous surveillance feeds to a single shape:
// a two-column (date, target) table for one location, ready for series
// building. Each adapter knows one feed's column layout and quirks; nothing
// downstream does.
package source

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

// locationSampleSize caps how many valid locations a NotFoundError carries.
const locationSampleSize = 5

// Source is one registered surveillance feed.
type Source interface {
	// Name is the catalog identifier, e.g. "covid".
	Name() string

	// Targets lists the quantities this feed reports.
	Targets() []domain.TargetKind

	// Locations lists the locations this feed can serve, sorted. For
	// allow-listed sources this is the allow-list, not the snapshot.
	Locations() []string

	// Extract returns a table with exactly two columns, "date" and the
	// target name, holding the raw rows for one location. Dates may be
	// unsorted and duplicated; the series builder owns that cleanup.
	Extract(location string, target domain.TargetKind) (*tabular.Table, error)
}

// supportsTarget reports whether target is in the source's target list.
func supportsTarget(s Source, target domain.TargetKind) bool {
	for _, t := range s.Targets() {
		if t == target {
			return true
		}
	}
	return false
}

// checkTarget returns a uniform error for unsupported targets.
func checkTarget(s Source, target domain.TargetKind) error {
	if !supportsTarget(s, target) {
		return fmt.Errorf("source %s does not report %s", s.Name(), target)
	}
	return nil
}

// locationSample returns up to locationSampleSize locations for error messages.
func locationSample(locations []string) []string {
	if len(locations) <= locationSampleSize {
		return locations
	}
	return locations[:locationSampleSize]
}

// sameLocation compares free-text location values, ignoring case and
// surrounding whitespace.
func sameLocation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// allowed reports whether location passes the spec's allow-list. An empty
// allow-list admits everything.
func allowed(allowList []string, location string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, l := range allowList {
		if sameLocation(l, location) {
			return true
		}
	}
	return false
}

// Registry holds the sources built from the catalog, keyed by name.
type Registry struct {
	sources map[string]Source
	names   []string
}

// BuildOptions carries the registry-wide settings shared by all adapters.
type BuildOptions struct {
	DataDir          string
	MissingThreshold float64
	SimulatedSeed    int64
}

// NewRegistry loads every catalog source and constructs its adapter.
// CSV snapshots are decoded once here and shared by all later requests.
func NewRegistry(cat *config.Catalog, opts BuildOptions, logger *slog.Logger) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(cat.Sources))}

	for _, spec := range cat.Sources {
		src, err := buildSource(spec, opts)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.Name, err)
		}
		r.sources[spec.Name] = src
		r.names = append(r.names, spec.Name)
		logger.Info("source registered",
			"source", spec.Name,
			"adapter", spec.Adapter,
			"locations", len(src.Locations()),
		)
	}

	sort.Strings(r.names)
	return r, nil
}

func buildSource(spec config.SourceSpec, opts BuildOptions) (Source, error) {
	if spec.Adapter == "simulated" {
		return NewSimulated(spec, opts.SimulatedSeed), nil
	}

	path := spec.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.DataDir, path)
	}
	table, err := tabular.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}

	threshold := opts.MissingThreshold
	if spec.MissingThreshold != nil {
		threshold = *spec.MissingThreshold
	}

	switch spec.Adapter {
	case "covid":
		return NewCOVID(spec, table, threshold), nil
	case "influenza":
		return NewInfluenza(spec, table, threshold), nil
	case "zika":
		return NewZika(spec, table, threshold), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", spec.Adapter)
	}
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (have: %s)", name, strings.Join(r.names, ", "))
	}
	return src, nil
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string { return r.names }

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.sources) }
