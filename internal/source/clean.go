package source

import (
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

// dropSparseColumns removes columns whose missing fraction exceeds threshold.
// Protected columns survive regardless; every adapter protects its date and
// target columns so a sparse snapshot keeps its keys and values, with the
// gaps zero-filled later.
func dropSparseColumns(t *tabular.Table, threshold float64, protected ...string) *tabular.Table {
	keep := make(map[string]bool, len(protected))
	for _, c := range protected {
		keep[c] = true
	}

	var drop []string
	for _, c := range t.Columns() {
		if keep[c] {
			continue
		}
		if t.MissingFraction(c) > threshold {
			drop = append(drop, c)
		}
	}
	if len(drop) == 0 {
		return t
	}
	return t.DropColumns(drop...)
}

// finalizeExtract shapes a cleaned per-location table into the adapter output
// contract: two columns named "date" and the target, empties zero-filled.
func finalizeExtract(t *tabular.Table, dateColumn, valueColumn, target string) (*tabular.Table, error) {
	out, err := t.Project(dateColumn, valueColumn)
	if err != nil {
		return nil, err
	}
	out = out.FillEmpty("0", valueColumn)
	return out.Rename(map[string]string{dateColumn: "date", valueColumn: target})
}
