package domain

import (
	"fmt"
	"strings"
	"time"
)

// TargetKind identifies which quantity a series tracks.
type TargetKind string

const (
	TargetCases  TargetKind = "cases"
	TargetDeaths TargetKind = "deaths"
)

// ParseTargetKind maps a user-supplied target string ("Cases", "deaths", ...)
// to a TargetKind.
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cases":
		return TargetCases, nil
	case "deaths":
		return TargetDeaths, nil
	default:
		return "", fmt.Errorf("unknown target kind %q (want cases or deaths)", s)
	}
}

// PredictedColumn returns the export column name for forecast values,
// e.g. "predicted_cases".
func (t TargetKind) PredictedColumn() string {
	return "predicted_" + string(t)
}

// AvgColumn returns the export column name for the rolling average,
// e.g. "cases_7d_avg".
func (t TargetKind) AvgColumn() string {
	return string(t) + "_7d_avg"
}

// Observation is one day of a canonical series, with derived fields attached.
// Calendar fields are pure functions of Date; DayOfWeek uses 0=Monday.
type Observation struct {
	Date          time.Time `json:"date"`
	Value         int64     `json:"value"`
	DayOfYear     int       `json:"day_of_year"`
	Month         int       `json:"month"`
	Day           int       `json:"day"`
	DayOfWeek     int       `json:"day_of_week"`
	RollingAvg7d  float64   `json:"rolling_avg_7d"`
	GrowthRatePct float64   `json:"growth_rate_pct"`
}

// CanonicalSeries is the gap-free daily series for one (location, target)
// pair, sorted ascending by date. It is treated as immutable once built.
type CanonicalSeries struct {
	Source       string        `json:"source"`
	Location     string        `json:"location"`
	Target       TargetKind    `json:"target"`
	Observations []Observation `json:"observations"`
	ProcessedAt  time.Time     `json:"processed_at"`

	// WeeklyCadence records that the raw feed reported roughly once a week,
	// so most observations are forward-filled. Diagnostic only.
	WeeklyCadence bool `json:"-"`
}

// Len returns the number of observations.
func (s CanonicalSeries) Len() int { return len(s.Observations) }

// LastDate returns the date of the final observation, or the zero time for an
// empty series.
func (s CanonicalSeries) LastDate() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Date
}

// ForecastPoint is one predicted day.
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted int64     `json:"predicted"`
}

// ForecastSeries holds predictions for dates strictly after the historical
// series, contiguous for exactly the requested horizon.
type ForecastSeries struct {
	Source      string          `json:"source"`
	Location    string          `json:"location"`
	Target      TargetKind      `json:"target"`
	Points      []ForecastPoint `json:"points"`
	Horizon     int             `json:"horizon_days"`
	LongHorizon bool            `json:"long_horizon"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// RiskLevel is the qualitative risk classification of recent growth.
type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown"
)

// Trend describes the direction of recent growth.
type Trend string

const (
	TrendIncreasing         Trend = "Increasing"
	TrendSlightlyIncreasing Trend = "Slightly Increasing"
	TrendStable             Trend = "Stable"
	TrendSlightlyDecreasing Trend = "Slightly Decreasing"
	TrendDecreasing         Trend = "Decreasing"
	TrendInsufficient       Trend = "Insufficient History"
)

// SummaryStats summarizes a canonical series for display. It is derived
// purely from the series and recomputed whenever the series changes.
type SummaryStats struct {
	Target    TargetKind `json:"target"`
	Total     int64      `json:"total"`
	Average   float64    `json:"average"`
	PeakValue int64      `json:"peak_value"`
	PeakDate  time.Time  `json:"peak_date"`
	Risk      RiskLevel  `json:"risk_level"`
	Trend     Trend      `json:"trend"`

	// MonthlyAverages holds the mean daily value per calendar month
	// (index 0 = January). Months absent from the series report 0.
	MonthlyAverages [12]float64 `json:"monthly_averages"`
}

// ForecastStats summarizes a forecast period, independent of the historical
// series.
type ForecastStats struct {
	Target      TargetKind `json:"target"`
	PeakValue   int64      `json:"peak_value"`
	PeakDate    time.Time  `json:"peak_date"`
	Average     float64    `json:"average"`
	Total       int64      `json:"total"`
	HorizonDays int        `json:"horizon_days"`
}

// CalendarFeatures returns the model feature vector for a date:
// [day_of_year, month, day_of_month, day_of_week]. DayOfWeek is shifted so
// Monday=0, matching the convention used throughout the series derivation.
func CalendarFeatures(date time.Time) []float64 {
	return []float64{
		float64(date.YearDay()),
		float64(int(date.Month())),
		float64(date.Day()),
		float64(MondayIndexedWeekday(date)),
	}
}

// MondayIndexedWeekday converts Go's Sunday=0 weekday to Monday=0.
func MondayIndexedWeekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}
