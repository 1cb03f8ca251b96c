package source

import (
	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

const (
	fluCountryColumn = "Country"
	fluWeekEndColumn = "EDATE"
	fluCasesColumn   = "ALL_INF"
)

// Influenza adapts the FluNet-style extract: one row per (country, ISO week)
// with the week-end date in EDATE and the combined influenza positives in
// ALL_INF. The feed reports no deaths, so cases is the only target. Weekly
// cadence is preserved here; the series builder detects and upsamples it.
type Influenza struct {
	spec      config.SourceSpec
	table     *tabular.Table
	threshold float64
	locations []string
}

// NewInfluenza wraps a decoded FluNet snapshot.
func NewInfluenza(spec config.SourceSpec, table *tabular.Table, threshold float64) *Influenza {
	return &Influenza{
		spec:      spec,
		table:     table,
		threshold: threshold,
		locations: snapshotLocations(spec, table, fluCountryColumn),
	}
}

func (s *Influenza) Name() string { return s.spec.Name }

func (s *Influenza) Targets() []domain.TargetKind {
	return []domain.TargetKind{domain.TargetCases}
}

func (s *Influenza) Locations() []string { return s.locations }

func (s *Influenza) Extract(location string, target domain.TargetKind) (*tabular.Table, error) {
	if err := checkTarget(s, target); err != nil {
		return nil, err
	}

	required := []string{fluCountryColumn, fluWeekEndColumn, fluCasesColumn}
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
		return sameLocation(s.table.Cell(row, fluCountryColumn), location)
	})
	if rows.NumRows() == 0 {
		return nil, &domain.NotFoundError{
			Source: s.Name(), Location: location,
			Available: locationSample(s.locations),
		}
	}

	relevant, err := rows.Project(fluWeekEndColumn, fluCasesColumn)
	if err != nil {
		return nil, err
	}

	cleaned := dropSparseColumns(relevant, s.threshold, protectedColumns(s.spec, fluWeekEndColumn, fluCasesColumn)...)
	return finalizeExtract(cleaned, fluWeekEndColumn, fluCasesColumn, string(target))
}
