// Package domain models epidemiological surveillance time series.
//
// # Data Sources
//
// Observations (daily confirmed case or death counts per country) arrive as
// CSV extracts from heterogeneous public surveillance feeds. Each source uses
// its own column layout: the COVID extract reports new_cases/new_deaths per
// country per day, the influenza feed (FluNet-style) reports ALL_INF counts
// per country per ISO week, and the Zika extract reports cases/deaths per
// country per day. Source-specific layouts are reconciled by the adapters in
// internal/source; this package defines only the canonical shapes they
// produce.
//
// # Canonical Series
//
// A CanonicalSeries is the cleaned, gap-free daily series for one
// (location, target) pair. It is immutable once built: rolling averages and
// growth rates are order-dependent, so any change of location or target
// rebuilds the series from the raw snapshot instead of patching it.
//
// Derived fields per observation:
//
//	Calendar features:  day_of_year, month, day_of_month, day_of_week
//	                    (pure functions of the date; day_of_week is 0=Monday)
//	rolling_avg_7d:     trailing 7-day mean, window shrinking at the series
//	                    start so the first day's average equals its own value
//	growth_rate_pct:    day-over-day percentage change, forced to 0 whenever
//	                    the previous value is 0 so no Inf/NaN ever reaches
//	                    display or modeling
//
// # Weekly Sources
//
// Sources reporting per ISO week (influenza) are upsampled to daily
// resolution by forward fill: the reported weekly figure is carried as an
// approximately constant daily rate until the next report. This is a step
// function, not an interpolation; the statistics engine depends on exactly
// these semantics.
//
// # Risk Classification
//
// Risk level and trend are derived from the mean growth rate over the
// trailing 7 observations:
//
//	> 5%        High    Increasing
//	1% to 5%    Medium  Slightly Increasing
//	-1% to 1%   Medium  Stable
//	-5% to -1%  Low     Slightly Decreasing
//	< -5%       Low     Decreasing
//
// Fewer than 7 observations classify as insufficient history rather than
// failing.
package domain
