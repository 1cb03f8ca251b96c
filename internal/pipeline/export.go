package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

// SeriesTable flattens a canonical series into the export column contract:
// date, the target count, the four calendar features, the rolling average,
// and the growth rate.
func SeriesTable(s domain.CanonicalSeries) *tabular.Table {
	out, _ := tabular.New(
		"date",
		string(s.Target),
		"day_of_year",
		"month",
		"day",
		"day_of_week",
		s.Target.AvgColumn(),
		"growth_rate",
	)
	for _, o := range s.Observations {
		_ = out.Append([]string{
			o.Date.Format("2006-01-02"),
			strconv.FormatInt(o.Value, 10),
			strconv.Itoa(o.DayOfYear),
			strconv.Itoa(o.Month),
			strconv.Itoa(o.Day),
			strconv.Itoa(o.DayOfWeek),
			formatFloat(o.RollingAvg7d),
			formatFloat(o.GrowthRatePct),
		})
	}
	return out
}

// formatFloat keeps exact values without trailing zero padding.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ForecastTable flattens a forecast into two columns: date and the
// predicted count, named predicted_<target>.
func ForecastTable(f domain.ForecastSeries) *tabular.Table {
	out, _ := tabular.New("date", f.Target.PredictedColumn())
	for _, p := range f.Points {
		_ = out.Append([]string{
			p.Date.Format("2006-01-02"),
			strconv.FormatInt(p.Predicted, 10),
		})
	}
	return out
}

// ExportFailure records one location skipped during a batch export.
type ExportFailure struct {
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// ExportAll builds the series for every location a source serves and
// concatenates them into one table with a leading location column. A failing
// location is skipped and reported in the failure list; one malformed country
// must not sink the batch. The error is non-nil only when every location
// fails.
func (p *Pipeline) ExportAll(ctx context.Context, sourceName string, target domain.TargetKind) (*tabular.Table, []ExportFailure, error) {
	src, err := p.registry.Get(sourceName)
	if err != nil {
		return nil, nil, err
	}

	var out *tabular.Table
	var failures []ExportFailure
	for _, location := range src.Locations() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		result, err := p.Process(ctx, Request{
			ID:           uuid.New(),
			Source:       sourceName,
			Location:     location,
			Target:       target,
			SkipForecast: true,
		})
		if err != nil {
			p.metrics.ExportLocations.WithLabelValues(sourceName, "error").Inc()
			p.logger.Warn("export skipping location",
				"source", sourceName, "location", location, "error", err)
			failures = append(failures, ExportFailure{Location: location, Reason: err.Error()})
			continue
		}
		p.metrics.ExportLocations.WithLabelValues(sourceName, "success").Inc()

		section := SeriesTable(result.Series)
		if out == nil {
			out, _ = tabular.New(append([]string{"location"}, section.Columns()...)...)
		}
		for row := 0; row < section.NumRows(); row++ {
			cells := make([]string, 0, 1+len(section.Columns()))
			cells = append(cells, location)
			for _, col := range section.Columns() {
				cells = append(cells, section.Cell(row, col))
			}
			_ = out.Append(cells)
		}
	}

	if out == nil {
		return nil, failures, fmt.Errorf("export %s (%s): every location failed", sourceName, target)
	}
	p.logger.Info("export complete",
		"source", sourceName,
		"target", target,
		"locations", len(src.Locations())-len(failures),
		"failed", len(failures),
		"rows", out.NumRows(),
	)
	return out, failures, nil
}
