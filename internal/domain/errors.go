package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns missing from a source table.
// It is never retried; the caller sees exactly which columns were absent.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: missing required column(s): %s",
		e.Source, strings.Join(e.Missing, ", "))
}

// NotFoundError reports that filtering by location yielded zero rows.
// Available carries a sample of valid locations to aid correction.
type NotFoundError struct {
	Source    string
	Location  string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("source %s: no rows for location %q", e.Source, e.Location)
	}
	return fmt.Sprintf("source %s: no rows for location %q (valid locations include: %s)",
		e.Source, e.Location, strings.Join(e.Available, ", "))
}

// EmptyResultError reports that a processing stage produced an empty table
// from non-empty input. Terminal for the request; not retried.
type EmptyResultError struct {
	Stage    string
	Source   string
	Location string
	Target   TargetKind
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s produced no rows for %s/%s (%s)",
		e.Stage, e.Source, e.Location, e.Target)
}

// InsufficientDataError reports fewer usable rows than the modeling minimum.
type InsufficientDataError struct {
	Location string
	Target   TargetKind
	Rows     int
	Min      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s (%s): %d rows, need at least %d",
		e.Location, e.Target, e.Rows, e.Min)
}

// ModelError reports a scaling or prediction arithmetic failure. Rare;
// indicates malformed feature vectors rather than bad input data.
type ModelError struct {
	Location string
	Target   TargetKind
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model failure for %s (%s): %v", e.Location, e.Target, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
