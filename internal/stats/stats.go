// Package stats derives descriptive summaries from canonical and forecast
// series: totals, averages, peaks, monthly breakdowns, and the qualitative
// risk and trend classification shown to users.
package stats

import (
	"github.com/epiforecast/epi-pipeline/internal/domain"
)

// trendWindow is how many trailing observations feed the risk classification.
const trendWindow = 7

// Summarize computes the descriptive statistics for a canonical series.
// An empty series reports zero values with an unknown risk level.
func Summarize(s domain.CanonicalSeries) domain.SummaryStats {
	out := domain.SummaryStats{
		Target: s.Target,
		Risk:   domain.RiskUnknown,
		Trend:  domain.TrendInsufficient,
	}
	if s.Len() == 0 {
		return out
	}

	var monthTotals [12]float64
	var monthCounts [12]int
	peak := s.Observations[0]
	for _, o := range s.Observations {
		out.Total += o.Value
		if o.Value > peak.Value {
			peak = o
		}
		monthTotals[o.Month-1] += float64(o.Value)
		monthCounts[o.Month-1]++
	}

	out.Average = float64(out.Total) / float64(s.Len())
	out.PeakValue = peak.Value
	out.PeakDate = peak.Date
	for m := range monthTotals {
		if monthCounts[m] > 0 {
			out.MonthlyAverages[m] = monthTotals[m] / float64(monthCounts[m])
		}
	}

	out.Risk, out.Trend = classify(s)
	return out
}

// classify maps the mean growth rate over the trailing window to a risk level
// and trend label. Shorter series are reported as insufficient history rather
// than being classified on noise.
func classify(s domain.CanonicalSeries) (domain.RiskLevel, domain.Trend) {
	if s.Len() < trendWindow {
		return domain.RiskUnknown, domain.TrendInsufficient
	}

	var sum float64
	for _, o := range s.Observations[s.Len()-trendWindow:] {
		sum += o.GrowthRatePct
	}
	mean := sum / trendWindow

	switch {
	case mean > 5:
		return domain.RiskHigh, domain.TrendIncreasing
	case mean > 1:
		return domain.RiskMedium, domain.TrendSlightlyIncreasing
	case mean >= -1:
		return domain.RiskMedium, domain.TrendStable
	case mean >= -5:
		return domain.RiskLow, domain.TrendSlightlyDecreasing
	default:
		return domain.RiskLow, domain.TrendDecreasing
	}
}

// SummarizeForecast computes the headline numbers for a forecast period,
// independent of the history that produced it.
func SummarizeForecast(f domain.ForecastSeries) domain.ForecastStats {
	out := domain.ForecastStats{
		Target:      f.Target,
		HorizonDays: f.Horizon,
	}
	if len(f.Points) == 0 {
		return out
	}

	peak := f.Points[0]
	for _, p := range f.Points {
		out.Total += p.Predicted
		if p.Predicted > peak.Predicted {
			peak = p
		}
	}
	out.Average = float64(out.Total) / float64(len(f.Points))
	out.PeakValue = peak.Predicted
	out.PeakDate = peak.Date
	return out
}
