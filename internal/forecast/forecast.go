// Package forecast predicts future daily counts from a canonical series
// using an ensemble of regression trees over calendar features. The model
// learns the seasonal and weekly shape of the history; it sees dates, not
// prior counts, so any future date can be scored independently.
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/epiforecast/epi-pipeline/internal/domain"
)

// Params bound the model and the horizons it may be asked for.
type Params struct {
	Trees           int
	Seed            int64
	MinTrainingRows int

	MinHorizon     int
	MaxHorizon     int
	DefaultHorizon int

	// LongHorizon marks forecasts beyond this many days as speculative.
	LongHorizon int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Trees:           100,
		Seed:            42,
		MinTrainingRows: 10,
		MinHorizon:      30,
		MaxHorizon:      730,
		DefaultHorizon:  360,
		LongHorizon:     180,
	}
}

// HorizonError reports a requested horizon outside the configured bounds.
type HorizonError struct {
	Horizon int
	Min     int
	Max     int
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("horizon %d days out of range [%d, %d]", e.Horizon, e.Min, e.Max)
}

// Engine trains models and produces forecasts under one set of Params.
type Engine struct {
	params Params
}

// NewEngine builds an engine. Zero-valued params fields fall back to defaults.
func NewEngine(params Params) *Engine {
	def := DefaultParams()
	if params.Trees <= 0 {
		params.Trees = def.Trees
	}
	if params.MinTrainingRows <= 0 {
		params.MinTrainingRows = def.MinTrainingRows
	}
	if params.MinHorizon <= 0 {
		params.MinHorizon = def.MinHorizon
	}
	if params.MaxHorizon <= 0 {
		params.MaxHorizon = def.MaxHorizon
	}
	if params.DefaultHorizon <= 0 {
		params.DefaultHorizon = def.DefaultHorizon
	}
	if params.LongHorizon <= 0 {
		params.LongHorizon = def.LongHorizon
	}
	return &Engine{params: params}
}

// Model is a trained ensemble bound to the series it learned from.
type Model struct {
	forest *Forest
	scaler *Scaler

	source   string
	location string
	target   domain.TargetKind
	lastDate time.Time
}

// Train fits a model on the canonical series. Series shorter than the
// training minimum are rejected with the actual and required row counts.
func (e *Engine) Train(s domain.CanonicalSeries) (*Model, error) {
	if s.Len() < e.params.MinTrainingRows {
		return nil, &domain.InsufficientDataError{
			Location: s.Location,
			Target:   s.Target,
			Rows:     s.Len(),
			Min:      e.params.MinTrainingRows,
		}
	}

	x := make([][]float64, s.Len())
	y := make([]float64, s.Len())
	for i, o := range s.Observations {
		x[i] = domain.CalendarFeatures(o.Date)
		y[i] = float64(o.Value)
	}

	scaler := FitScaler(x)
	forest := trainForest(scaler.TransformAll(x), y, e.params.Trees, e.params.Seed)

	return &Model{
		forest:   forest,
		scaler:   scaler,
		source:   s.Source,
		location: s.Location,
		target:   s.Target,
		lastDate: s.LastDate(),
	}, nil
}

// Forecast predicts the horizon days immediately following the training
// series. A horizon of 0 uses the default; out-of-range horizons are
// rejected. Predictions are clipped at zero and rounded to whole counts.
func (e *Engine) Forecast(m *Model, horizon int) (domain.ForecastSeries, error) {
	if horizon == 0 {
		horizon = e.params.DefaultHorizon
	}
	if horizon < e.params.MinHorizon || horizon > e.params.MaxHorizon {
		return domain.ForecastSeries{}, &HorizonError{
			Horizon: horizon,
			Min:     e.params.MinHorizon,
			Max:     e.params.MaxHorizon,
		}
	}

	points := make([]domain.ForecastPoint, horizon)
	for d := 0; d < horizon; d++ {
		date := m.lastDate.AddDate(0, 0, d+1)
		raw := m.forest.predict(m.scaler.Transform(domain.CalendarFeatures(date)))
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return domain.ForecastSeries{}, &domain.ModelError{
				Location: m.location,
				Target:   m.target,
				Err:      fmt.Errorf("non-finite prediction for %s", date.Format("2006-01-02")),
			}
		}
		points[d] = domain.ForecastPoint{
			Date:      date,
			Predicted: int64(math.Round(math.Max(0, raw))),
		}
	}

	return domain.ForecastSeries{
		Source:      m.source,
		Location:    m.location,
		Target:      m.target,
		Points:      points,
		Horizon:     horizon,
		LongHorizon: horizon > e.params.LongHorizon,
		ProcessedAt: domain.Now(),
	}, nil
}
