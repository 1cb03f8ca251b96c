// Package canonical turns a raw (date, value) extract into the gap-free
// daily series that statistics and modeling consume. The build is a pure
// function of its input rows, so rebuilding after a location or target
// change always yields the same series.
package canonical

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

// rollingWindow is the trailing window for the smoothed average.
const rollingWindow = 7

// dateLayouts are tried in order when parsing source dates. Surveillance
// exports are inconsistent; rows whose dates match none are dropped.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
}

// Build constructs the canonical daily series for one extract. The input
// table must follow the adapter output contract: a "date" column plus one
// column named for the target. Duplicate dates keep the last row, mirroring
// a feed that restates a day in a later publication.
func Build(source, location string, target domain.TargetKind, tbl *tabular.Table) (domain.CanonicalSeries, error) {
	if missing := tbl.MissingColumns("date", string(target)); len(missing) > 0 {
		return domain.CanonicalSeries{}, &domain.SchemaError{Source: source, Missing: missing}
	}

	byDate := make(map[time.Time]int64)
	for row := 0; row < tbl.NumRows(); row++ {
		date, ok := parseDate(tbl.Cell(row, "date"))
		if !ok {
			continue
		}
		byDate[date] = parseCountOrZero(tbl.Cell(row, string(target)))
	}
	if len(byDate) == 0 {
		return domain.CanonicalSeries{}, &domain.EmptyResultError{
			Stage: "canonicalize", Source: source, Location: location, Target: target,
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	observations := resampleDaily(dates, byDate)
	deriveFeatures(observations)

	return domain.CanonicalSeries{
		Source:        source,
		Location:      location,
		Target:        target,
		Observations:  observations,
		ProcessedAt:   domain.Now(),
		WeeklyCadence: WeeklyCadence(dates),
	}, nil
}

// WeeklyCadence reports whether the sorted dates look like a weekly feed:
// a median gap of 6 to 8 days. Diagnostic only; resampling forward fills
// any cadence the same way.
func WeeklyCadence(dates []time.Time) bool {
	if len(dates) < 2 {
		return false
	}
	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, int(dates[i].Sub(dates[i-1]).Hours()/24))
	}
	sort.Ints(gaps)
	median := gaps[len(gaps)/2]
	return median >= 6 && median <= 8
}

// resampleDaily expands the sorted dates to a contiguous daily range from
// first to last, carrying each reported value forward until the next report.
// A weekly feed becomes a step function with 7-day treads.
func resampleDaily(dates []time.Time, byDate map[time.Time]int64) []domain.Observation {
	first, last := dates[0], dates[len(dates)-1]
	days := int(last.Sub(first).Hours()/24) + 1

	observations := make([]domain.Observation, 0, days)
	current := byDate[first]
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		if v, ok := byDate[date]; ok {
			current = v
		}
		observations = append(observations, domain.Observation{Date: date, Value: current})
	}
	return observations
}

// deriveFeatures fills in calendar fields, the trailing average, and the
// growth rate. The average window shrinks at the series start; the growth
// rate is 0 for the first day and whenever the previous value is 0.
func deriveFeatures(observations []domain.Observation) {
	var windowSum int64
	for i := range observations {
		o := &observations[i]
		o.DayOfYear = o.Date.YearDay()
		o.Month = int(o.Date.Month())
		o.Day = o.Date.Day()
		o.DayOfWeek = domain.MondayIndexedWeekday(o.Date)

		windowSum += o.Value
		windowLen := i + 1
		if windowLen > rollingWindow {
			windowSum -= observations[i-rollingWindow].Value
			windowLen = rollingWindow
		}
		o.RollingAvg7d = float64(windowSum) / float64(windowLen)

		if i > 0 {
			if prev := observations[i-1].Value; prev != 0 {
				o.GrowthRatePct = float64(o.Value-prev) / float64(prev) * 100
			}
		}
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

// parseCountOrZero coerces a count cell, returning 0 for empty or malformed
// values rather than failing the row. Fractions truncate toward zero.
func parseCountOrZero(s string) int64 {
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

// Validate checks the invariants every canonical series must satisfy:
// contiguous ascending dates and finite derived fields. Meant for tests and
// debug assertions, not the hot path.
func Validate(s domain.CanonicalSeries) error {
	for i := 1; i < len(s.Observations); i++ {
		prev, cur := s.Observations[i-1].Date, s.Observations[i].Date
		if cur.Sub(prev) != 24*time.Hour {
			return fmt.Errorf("gap between %s and %s",
				prev.Format("2006-01-02"), cur.Format("2006-01-02"))
		}
	}
	return nil
}
