// Package tabular provides a small string-celled table used to carry raw
// source extracts between CSV decoding, source adapters, and series building.
// Tables are value-like: transforming operations return a new Table and leave
// the receiver untouched, so one decoded snapshot can serve many requests.
package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// Table is an ordered set of named columns over string cells. Cells keep the
// raw source text; numeric coercion happens at the point of use.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds an empty table with the given column order.
// Duplicate column names return an error.
func New(columns ...string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

// Columns returns the column names in order. The caller must not modify it.
func (t *Table) Columns() []string { return t.columns }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// MissingColumns returns the subset of names absent from the table,
// preserving the requested order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Append adds a row. The row must have exactly one cell per column.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

// Cell returns the value at (row, column), or "" if the column is absent.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.rows[row][i]
}

// Filter returns a new table containing the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := t.emptyLike(t.columns)
	for i := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, t.rows[i])
		}
	}
	return out
}

// Project returns a new table with only the named columns, in the given
// order. Requesting an absent column is an error.
func (t *Table) Project(columns ...string) (*Table, error) {
	if missing := t.MissingColumns(columns...); len(missing) > 0 {
		return nil, fmt.Errorf("project: missing column(s): %s", strings.Join(missing, ", "))
	}
	out := t.emptyLike(columns)
	src := make([]int, len(columns))
	for i, c := range columns {
		src[i] = t.index[c]
	}
	for _, row := range t.rows {
		projected := make([]string, len(columns))
		for i, j := range src {
			projected[i] = row[j]
		}
		out.rows = append(out.rows, projected)
	}
	return out, nil
}

// Rename returns a new table with columns renamed per the mapping. Columns
// absent from the mapping keep their names. Renaming onto an existing name
// is an error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	renamed := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			renamed[i] = to
		} else {
			renamed[i] = c
		}
	}
	out, err := New(renamed...)
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	out.rows = t.rows
	return out, nil
}

// DropColumns returns a new table without the named columns. Names the table
// does not have are ignored.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var kept []string
	for _, c := range t.columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	out, _ := t.Project(kept...)
	return out
}

// FillEmpty returns a new table with empty cells in the named columns
// replaced by the given value. Absent columns are ignored.
func (t *Table) FillEmpty(value string, columns ...string) *Table {
	targets := make([]int, 0, len(columns))
	for _, c := range columns {
		if i, ok := t.index[c]; ok {
			targets = append(targets, i)
		}
	}
	out := t.emptyLike(t.columns)
	for _, row := range t.rows {
		filled := append([]string(nil), row...)
		for _, i := range targets {
			if strings.TrimSpace(filled[i]) == "" {
				filled[i] = value
			}
		}
		out.rows = append(out.rows, filled)
	}
	return out
}

// MissingFraction returns the fraction of rows whose cell in the column is
// empty after trimming. An absent column counts as fully missing; an empty
// table reports 0.
func (t *Table) MissingFraction(column string) float64 {
	i, ok := t.index[column]
	if !ok {
		return 1
	}
	if len(t.rows) == 0 {
		return 0
	}
	missing := 0
	for _, row := range t.rows {
		if strings.TrimSpace(row[i]) == "" {
			missing++
		}
	}
	return float64(missing) / float64(len(t.rows))
}

// DistinctValues returns the sorted distinct non-empty values of a column.
func (t *Table) DistinctValues(column string) []string {
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	for _, row := range t.rows {
		v := strings.TrimSpace(row[i])
		if v != "" {
			seen[v] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (t *Table) emptyLike(columns []string) *Table {
	out, _ := New(columns...)
	return out
}
