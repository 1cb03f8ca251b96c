package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiforecast/epi-pipeline/internal/domain"
)

func testParams() Params {
	p := DefaultParams()
	p.Trees = 20 // enough for stable tests, fast enough to run everywhere
	return p
}

// weeklySeries builds days observations with a strong weekday pattern:
// weekday counts near 100, weekend counts near 20.
func weeklySeries(days int) domain.CanonicalSeries {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC) // a Monday
	obs := make([]domain.Observation, days)
	for i := range obs {
		date := start.AddDate(0, 0, i)
		value := int64(100)
		if domain.MondayIndexedWeekday(date) >= 5 {
			value = 20
		}
		obs[i] = domain.Observation{Date: date, Value: value}
	}
	return domain.CanonicalSeries{
		Source:       "covid",
		Location:     "Italy",
		Target:       domain.TargetCases,
		Observations: obs,
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	e := NewEngine(testParams())
	s := weeklySeries(5)

	_, err := e.Train(s)

	var ide *domain.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 5, ide.Rows)
	assert.Equal(t, 10, ide.Min)
	assert.Equal(t, "Italy", ide.Location)
}

func TestForecast_HorizonValidation(t *testing.T) {
	e := NewEngine(testParams())
	m, err := e.Train(weeklySeries(60))
	require.NoError(t, err)

	t.Run("below minimum", func(t *testing.T) {
		_, err := e.Forecast(m, 29)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[30, 730]")
	})

	t.Run("above maximum", func(t *testing.T) {
		_, err := e.Forecast(m, 731)
		require.Error(t, err)
	})

	t.Run("zero uses the default", func(t *testing.T) {
		f, err := e.Forecast(m, 0)
		require.NoError(t, err)
		assert.Equal(t, 360, f.Horizon)
		assert.Len(t, f.Points, 360)
	})

	t.Run("boundaries accepted", func(t *testing.T) {
		for _, h := range []int{30, 730} {
			f, err := e.Forecast(m, h)
			require.NoError(t, err)
			assert.Len(t, f.Points, h)
		}
	})
}

func TestForecast_ContiguousDates(t *testing.T) {
	e := NewEngine(testParams())
	s := weeklySeries(60)
	m, err := e.Train(s)
	require.NoError(t, err)

	f, err := e.Forecast(m, 30)
	require.NoError(t, err)

	lastHistorical := s.LastDate()
	assert.Equal(t, lastHistorical.AddDate(0, 0, 1), f.Points[0].Date,
		"forecast starts the day after history ends")
	for i := 1; i < len(f.Points); i++ {
		require.Equal(t, f.Points[i-1].Date.AddDate(0, 0, 1), f.Points[i].Date)
	}
}

func TestForecast_NonNegativeWholeCounts(t *testing.T) {
	e := NewEngine(testParams())

	// A series crashing toward zero tempts the model below zero.
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.Observation, 60)
	for i := range obs {
		value := int64(60 - i)
		if value < 0 {
			value = 0
		}
		obs[i] = domain.Observation{Date: start.AddDate(0, 0, i), Value: value}
	}
	s := domain.CanonicalSeries{Source: "covid", Location: "Italy", Target: domain.TargetCases, Observations: obs}

	m, err := e.Train(s)
	require.NoError(t, err)
	f, err := e.Forecast(m, 60)
	require.NoError(t, err)

	for _, p := range f.Points {
		require.GreaterOrEqual(t, p.Predicted, int64(0))
	}
}

func TestForecast_Deterministic(t *testing.T) {
	s := weeklySeries(120)

	run := func() domain.ForecastSeries {
		e := NewEngine(testParams())
		m, err := e.Train(s)
		require.NoError(t, err)
		f, err := e.Forecast(m, 30)
		require.NoError(t, err)
		f.ProcessedAt = time.Time{}
		return f
	}

	assert.Empty(t, cmp.Diff(run(), run()))
}

func TestForecast_SeedChangesEnsemble(t *testing.T) {
	s := weeklySeries(120)

	run := func(seed int64) []int64 {
		p := testParams()
		p.Seed = seed
		e := NewEngine(p)
		m, err := e.Train(s)
		require.NoError(t, err)
		f, err := e.Forecast(m, 60)
		require.NoError(t, err)
		out := make([]int64, len(f.Points))
		for i, pt := range f.Points {
			out[i] = pt.Predicted
		}
		return out
	}

	assert.NotEqual(t, run(42), run(43))
}

func TestForecast_LearnsWeekdayPattern(t *testing.T) {
	e := NewEngine(testParams())
	m, err := e.Train(weeklySeries(364))
	require.NoError(t, err)

	f, err := e.Forecast(m, 30)
	require.NoError(t, err)

	var weekdaySum, weekendSum float64
	var weekdays, weekends int
	for _, p := range f.Points {
		if domain.MondayIndexedWeekday(p.Date) >= 5 {
			weekendSum += float64(p.Predicted)
			weekends++
		} else {
			weekdaySum += float64(p.Predicted)
			weekdays++
		}
	}

	assert.Greater(t, weekdaySum/float64(weekdays), weekendSum/float64(weekends)+30,
		"predicted weekdays clearly above weekends")
}

func TestForecast_LongHorizonFlag(t *testing.T) {
	e := NewEngine(testParams())
	m, err := e.Train(weeklySeries(60))
	require.NoError(t, err)

	short, err := e.Forecast(m, 90)
	require.NoError(t, err)
	assert.False(t, short.LongHorizon)

	long, err := e.Forecast(m, 181)
	require.NoError(t, err)
	assert.True(t, long.LongHorizon)
}

func TestGrowTree_ConstantTarget(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{5, 5, 5, 5}

	root := growTree(x, y, []int{0, 1, 2, 3}, 0)

	assert.True(t, root.leaf)
	assert.Equal(t, 5.0, root.predict([]float64{2.5}))
}

func TestGrowTree_SplitsOnStep(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{10, 10, 10, 50, 50, 50}

	root := growTree(x, y, []int{0, 1, 2, 3, 4, 5}, 0)

	assert.InDelta(t, 10, root.predict([]float64{1.5}), 1e-9)
	assert.InDelta(t, 50, root.predict([]float64{5.5}), 1e-9)
}

func TestForestPredict_AveragesFinite(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	f := trainForest(x, y, 10, 42)
	out := f.predict([]float64{4.5})

	assert.False(t, math.IsNaN(out))
	assert.GreaterOrEqual(t, out, 1.0)
	assert.LessOrEqual(t, out, 8.0)
}
