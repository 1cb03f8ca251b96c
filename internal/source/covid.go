package source

import (
	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

const (
	covidDateColumn     = "date"
	covidLocationColumn = "location"
)

// covidTargetColumns maps targets to the feed's daily-count columns.
var covidTargetColumns = map[domain.TargetKind]string{
	domain.TargetCases:  "new_cases",
	domain.TargetDeaths: "new_deaths",
}

// COVID adapts the OWID-style COVID extract: one row per (location, date)
// with new_cases and new_deaths columns plus assorted metadata columns.
type COVID struct {
	spec      config.SourceSpec
	table     *tabular.Table
	threshold float64
	locations []string
}

// NewCOVID wraps a decoded COVID snapshot.
func NewCOVID(spec config.SourceSpec, table *tabular.Table, threshold float64) *COVID {
	return &COVID{
		spec:      spec,
		table:     table,
		threshold: threshold,
		locations: snapshotLocations(spec, table, covidLocationColumn),
	}
}

func (s *COVID) Name() string { return s.spec.Name }

func (s *COVID) Targets() []domain.TargetKind {
	return []domain.TargetKind{domain.TargetCases, domain.TargetDeaths}
}

func (s *COVID) Locations() []string { return s.locations }

func (s *COVID) Extract(location string, target domain.TargetKind) (*tabular.Table, error) {
	if err := checkTarget(s, target); err != nil {
		return nil, err
	}
	valueColumn := covidTargetColumns[target]

	required := []string{covidLocationColumn, covidDateColumn, valueColumn}
	if missing := s.table.MissingColumns(required...); len(missing) > 0 {
		return nil, &domain.SchemaError{Source: s.Name(), Missing: missing}
	}

	if !allowed(s.spec.Locations, location) {
		return nil, &domain.NotFoundError{
			Source: s.Name(), Location: location,
			Available: locationSample(s.locations),
		}
	}

	rows := s.table.Filter(func(row int) bool {
		return sameLocation(s.table.Cell(row, covidLocationColumn), location)
	})
	if rows.NumRows() == 0 {
		return nil, &domain.NotFoundError{
			Source: s.Name(), Location: location,
			Available: locationSample(s.locations),
		}
	}

	relevant, err := rows.Project(relevantColumns(rows, covidDateColumn, covidTargetColumns)...)
	if err != nil {
		return nil, err
	}

	cleaned := dropSparseColumns(relevant, s.threshold, protectedColumns(s.spec, covidDateColumn, valueColumn)...)
	return finalizeExtract(cleaned, covidDateColumn, valueColumn, string(target))
}

// snapshotLocations resolves the servable locations for a file-backed source:
// the spec's allow-list when present, otherwise the snapshot's distinct values.
func snapshotLocations(spec config.SourceSpec, table *tabular.Table, column string) []string {
	if len(spec.Locations) > 0 {
		return spec.Locations
	}
	return table.DistinctValues(column)
}

// relevantColumns returns the date column plus whichever target columns the
// snapshot actually has, so a partial snapshot still extracts cleanly.
func relevantColumns(t *tabular.Table, dateColumn string, targets map[domain.TargetKind]string) []string {
	columns := []string{dateColumn}
	for _, target := range []domain.TargetKind{domain.TargetCases, domain.TargetDeaths} {
		if c, ok := targets[target]; ok && t.HasColumn(c) {
			columns = append(columns, c)
		}
	}
	return columns
}

// protectedColumns merges the always-protected date and target columns with
// the spec's protected list. The sparsity rule may never drop either; sparse
// target values are zero-filled instead.
func protectedColumns(spec config.SourceSpec, essential ...string) []string {
	out := make([]string, 0, len(essential)+len(spec.ProtectedColumns))
	out = append(out, essential...)
	return append(out, spec.ProtectedColumns...)
}
