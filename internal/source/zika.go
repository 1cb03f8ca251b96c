package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

const (
	zikaDateColumn     = "report_date"
	zikaLocationColumn = "location"
)

var zikaTargetColumns = map[domain.TargetKind]string{
	domain.TargetCases:  "cases",
	domain.TargetDeaths: "deaths",
}

// Zika adapts the Zika surveillance extract. Locations are hierarchical,
// "Country-Region" style, with one row per (location, report date). A country
// request aggregates its sub-national rows by summing values per date.
type Zika struct {
	spec      config.SourceSpec
	table     *tabular.Table
	threshold float64
	locations []string
}

// NewZika wraps a decoded Zika snapshot.
func NewZika(spec config.SourceSpec, table *tabular.Table, threshold float64) *Zika {
	return &Zika{
		spec:      spec,
		table:     table,
		threshold: threshold,
		locations: zikaCountries(spec, table),
	}
}

func (s *Zika) Name() string { return s.spec.Name }

func (s *Zika) Targets() []domain.TargetKind {
	return []domain.TargetKind{domain.TargetCases, domain.TargetDeaths}
}

func (s *Zika) Locations() []string { return s.locations }

func (s *Zika) Extract(location string, target domain.TargetKind) (*tabular.Table, error) {
	if err := checkTarget(s, target); err != nil {
		return nil, err
	}
	valueColumn := zikaTargetColumns[target]

	required := []string{zikaLocationColumn, zikaDateColumn, valueColumn}
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
		return sameLocation(zikaCountry(s.table.Cell(row, zikaLocationColumn)), location)
	})
	if rows.NumRows() == 0 {
		return nil, &domain.NotFoundError{
			Source: s.Name(), Location: location,
			Available: locationSample(s.locations),
		}
	}

	relevant, err := rows.Project(relevantColumns(rows, zikaDateColumn, zikaTargetColumns)...)
	if err != nil {
		return nil, err
	}

	cleaned := dropSparseColumns(relevant, s.threshold, protectedColumns(s.spec, zikaDateColumn, valueColumn)...)
	return sumByDate(cleaned, zikaDateColumn, valueColumn, string(target))
}

// sumByDate collapses sub-national rows into one row per date, summing the
// value column. Row order follows first appearance of each date; the series
// builder sorts afterwards.
func sumByDate(t *tabular.Table, dateColumn, valueColumn, target string) (*tabular.Table, error) {
	totals := make(map[string]int64)
	var order []string
	for row := 0; row < t.NumRows(); row++ {
		date := t.Cell(row, dateColumn)
		if _, seen := totals[date]; !seen {
			order = append(order, date)
		}
		totals[date] += parseIntOrZero(t.Cell(row, valueColumn))
	}

	out, err := tabular.New("date", target)
	if err != nil {
		return nil, err
	}
	for _, date := range order {
		if err := out.Append([]string{date, strconv.FormatInt(totals[date], 10)}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseIntOrZero parses a count cell, returning 0 for empty or malformed
// values. Fractional cells are truncated toward zero.
func parseIntOrZero(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// zikaCountry strips the sub-national suffix: "Brazil-Bahia" -> "Brazil".
func zikaCountry(location string) string {
	country, _, _ := strings.Cut(strings.TrimSpace(location), "-")
	return country
}

func zikaCountries(spec config.SourceSpec, table *tabular.Table) []string {
	if len(spec.Locations) > 0 {
		return spec.Locations
	}
	seen := make(map[string]bool)
	for _, loc := range table.DistinctValues(zikaLocationColumn) {
		if c := zikaCountry(loc); c != "" {
			seen[c] = true
		}
	}
	countries := make([]string, 0, len(seen))
	for c := range seen {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}
