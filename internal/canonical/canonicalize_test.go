package canonical

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

func extractTable(t *testing.T, csv string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func values(s domain.CanonicalSeries) []int64 {
	out := make([]int64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Value
	}
	return out
}

func TestBuild_DailySeries(t *testing.T) {
	tbl := extractTable(t, "date,cases\n2024-01-01,10\n2024-01-02,20\n2024-01-03,30\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	assert.Equal(t, "covid", s.Source)
	assert.Equal(t, "Italy", s.Location)
	assert.Equal(t, domain.TargetCases, s.Target)
	assert.Equal(t, []int64{10, 20, 30}, values(s))
	assert.False(t, s.WeeklyCadence)
	require.NoError(t, Validate(s))

	first := s.Observations[0]
	assert.Equal(t, 1, first.DayOfYear)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, 0, first.DayOfWeek, "2024-01-01 is a Monday")
}

func TestBuild_WeeklyResample(t *testing.T) {
	// Two weekly reports expand to 8 daily rows; the first value is carried
	// through the gap.
	tbl := extractTable(t, "date,cases\n2024-01-07,100\n2024-01-14,140\n")

	s, err := Build("influenza", "Japan", domain.TargetCases, tbl)
	require.NoError(t, err)

	require.Equal(t, 8, s.Len())
	assert.Equal(t, []int64{100, 100, 100, 100, 100, 100, 100, 140}, values(s))
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), s.Observations[0].Date)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), s.LastDate())
	assert.True(t, s.WeeklyCadence)
	require.NoError(t, Validate(s))
}

func TestBuild_GrowthRateSafety(t *testing.T) {
	// Zero previous values never produce Inf or NaN.
	tbl := extractTable(t, "date,cases\n2024-01-01,0\n2024-01-02,0\n2024-01-03,5\n2024-01-04,0\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	rates := make([]float64, s.Len())
	for i, o := range s.Observations {
		rates[i] = o.GrowthRatePct
	}
	assert.Equal(t, []float64{0, 0, 0, -100}, rates)
}

func TestBuild_RollingAverageBoundary(t *testing.T) {
	// The window shrinks at the start instead of emitting missing values.
	tbl := extractTable(t, "date,cases\n2024-01-01,10\n2024-01-02,20\n2024-01-03,30\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	avgs := make([]float64, s.Len())
	for i, o := range s.Observations {
		avgs[i] = o.RollingAvg7d
	}
	assert.Equal(t, []float64{10, 15, 20}, avgs)
}

func TestBuild_RollingAverageFullWindow(t *testing.T) {
	tbl := extractTable(t, "date,cases\n"+
		"2024-01-01,7\n2024-01-02,7\n2024-01-03,7\n2024-01-04,7\n"+
		"2024-01-05,7\n2024-01-06,7\n2024-01-07,7\n2024-01-08,14\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	// Day 8 averages the trailing 7 values: six 7s and one 14.
	assert.InDelta(t, 8.0, s.Observations[7].RollingAvg7d, 1e-9)
}

func TestBuild_DuplicateDatesKeepLast(t *testing.T) {
	tbl := extractTable(t, "date,cases\n2024-01-01,10\n2024-01-02,99\n2024-01-02,20\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20}, values(s))
}

func TestBuild_UnsortedInput(t *testing.T) {
	tbl := extractTable(t, "date,cases\n2024-01-03,30\n2024-01-01,10\n2024-01-02,20\n")

	s, err := Build("covid", "Italy", domain.TargetCases, tbl)
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20, 30}, values(s))
	require.NoError(t, Validate(s))
}

func TestBuild_Idempotent(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	tbl := extractTable(t, "date,cases\n2024-01-07,100\n2024-01-14,140\n2024-01-21,90\n")

	first, err := Build("influenza", "Japan", domain.TargetCases, tbl)
	require.NoError(t, err)
	second, err := Build("influenza", "Japan", domain.TargetCases, tbl)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
}

func TestBuild_MalformedRows(t *testing.T) {
	t.Run("unparseable dates dropped", func(t *testing.T) {
		tbl := extractTable(t, "date,cases\nnot-a-date,10\n2024-01-01,20\n")

		s, err := Build("covid", "Italy", domain.TargetCases, tbl)
		require.NoError(t, err)
		assert.Equal(t, []int64{20}, values(s))
	})

	t.Run("all rows unparseable", func(t *testing.T) {
		tbl := extractTable(t, "date,cases\njunk,10\nworse,20\n")

		_, err := Build("covid", "Italy", domain.TargetCases, tbl)
		var ere *domain.EmptyResultError
		require.ErrorAs(t, err, &ere)
		assert.Equal(t, "canonicalize", ere.Stage)
	})

	t.Run("malformed counts become zero", func(t *testing.T) {
		tbl := extractTable(t, "date,cases\n2024-01-01,abc\n2024-01-02,20\n")

		s, err := Build("covid", "Italy", domain.TargetCases, tbl)
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 20}, values(s))
	})

	t.Run("wrong columns", func(t *testing.T) {
		tbl := extractTable(t, "day,count\n2024-01-01,10\n")

		_, err := Build("covid", "Italy", domain.TargetCases, tbl)
		var se *domain.SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, []string{"date", "cases"}, se.Missing)
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"iso", "2024-01-02", true},
		{"slashed iso", "2024/01/02", true},
		{"us style", "01/02/2024", true},
		{"rfc3339", "2024-01-02T00:00:00Z", true},
		{"garbage", "yesterday", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := parseDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d)
			}
		})
	}
}

func TestWeeklyCadence(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	t.Run("weekly gaps", func(t *testing.T) {
		assert.True(t, WeeklyCadence([]time.Time{day(7), day(14), day(21)}))
	})

	t.Run("daily gaps", func(t *testing.T) {
		assert.False(t, WeeklyCadence([]time.Time{day(1), day(2), day(3)}))
	})

	t.Run("single date", func(t *testing.T) {
		assert.False(t, WeeklyCadence([]time.Time{day(1)}))
	})
}
