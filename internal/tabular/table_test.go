package tabular

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New("date", "country", "cases", "deaths")
	require.NoError(t, err)
	require.NoError(t, tbl.Append([]string{"2024-01-01", "Italy", "10", "1"}))
	require.NoError(t, tbl.Append([]string{"2024-01-02", "Italy", "", "0"}))
	require.NoError(t, tbl.Append([]string{"2024-01-01", "Spain", "7", ""}))
	return tbl
}

func TestNew(t *testing.T) {
	t.Run("duplicate column rejected", func(t *testing.T) {
		_, err := New("date", "cases", "date")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"date"`)
	})

	t.Run("row width enforced", func(t *testing.T) {
		tbl, err := New("a", "b")
		require.NoError(t, err)
		require.Error(t, tbl.Append([]string{"1"}))
		require.NoError(t, tbl.Append([]string{"1", "2"}))
		assert.Equal(t, 1, tbl.NumRows())
	})
}

func TestFilter(t *testing.T) {
	tbl := testTable(t)

	italy := tbl.Filter(func(row int) bool {
		return tbl.Cell(row, "country") == "Italy"
	})

	assert.Equal(t, 2, italy.NumRows())
	assert.Equal(t, 3, tbl.NumRows(), "source table unchanged")
	assert.Equal(t, "2024-01-02", italy.Cell(1, "date"))
}

func TestProject(t *testing.T) {
	tbl := testTable(t)

	t.Run("keeps requested columns in order", func(t *testing.T) {
		out, err := tbl.Project("cases", "date")
		require.NoError(t, err)
		assert.Equal(t, []string{"cases", "date"}, out.Columns())
		assert.Equal(t, "10", out.Cell(0, "cases"))
		assert.Equal(t, "2024-01-01", out.Cell(0, "date"))
	})

	t.Run("missing column errors", func(t *testing.T) {
		_, err := tbl.Project("date", "hospitalized")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hospitalized")
	})
}

func TestRename(t *testing.T) {
	tbl := testTable(t)

	t.Run("maps names and keeps the rest", func(t *testing.T) {
		out, err := tbl.Rename(map[string]string{"cases": "new_cases"})
		require.NoError(t, err)
		assert.Equal(t, []string{"date", "country", "new_cases", "deaths"}, out.Columns())
		assert.Equal(t, "10", out.Cell(0, "new_cases"))
	})

	t.Run("collision rejected", func(t *testing.T) {
		_, err := tbl.Rename(map[string]string{"cases": "deaths"})
		require.Error(t, err)
	})
}

func TestDropColumns(t *testing.T) {
	tbl := testTable(t)

	out := tbl.DropColumns("deaths", "not_present")

	assert.Equal(t, []string{"date", "country", "cases"}, out.Columns())
	assert.Equal(t, 3, out.NumRows())
	assert.True(t, tbl.HasColumn("deaths"), "source table unchanged")
}

func TestFillEmpty(t *testing.T) {
	tbl := testTable(t)

	out := tbl.FillEmpty("0", "cases", "deaths")

	assert.Equal(t, "0", out.Cell(1, "cases"))
	assert.Equal(t, "0", out.Cell(2, "deaths"))
	assert.Equal(t, "10", out.Cell(0, "cases"))
	assert.Equal(t, "", tbl.Cell(1, "cases"), "source table unchanged")
}

func TestMissingFraction(t *testing.T) {
	tbl := testTable(t)

	assert.InDelta(t, 1.0/3.0, tbl.MissingFraction("cases"), 1e-9)
	assert.InDelta(t, 0, tbl.MissingFraction("date"), 1e-9)
	assert.Equal(t, 1.0, tbl.MissingFraction("absent"))

	empty, err := New("a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.MissingFraction("a"))
}

func TestDistinctValues(t *testing.T) {
	tbl := testTable(t)

	assert.Equal(t, []string{"Italy", "Spain"}, tbl.DistinctValues("country"))
	assert.Equal(t, []string{"0", "1"}, tbl.DistinctValues("deaths"), "empty cells excluded")
	assert.Nil(t, tbl.DistinctValues("absent"))
}

func TestReadCSV(t *testing.T) {
	t.Run("header plus rows", func(t *testing.T) {
		input := "date,country,cases\n2024-01-01,Italy,10\n2024-01-02,Italy,12\n"
		tbl, err := ReadCSV(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, []string{"date", "country", "cases"}, tbl.Columns())
		assert.Equal(t, 2, tbl.NumRows())
		assert.Equal(t, "12", tbl.Cell(1, "cases"))
	})

	t.Run("ragged rows tolerated", func(t *testing.T) {
		input := "date,cases,deaths\n2024-01-01,10\n2024-01-02,12,1,extra\n"
		tbl, err := ReadCSV(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, "", tbl.Cell(0, "deaths"), "short row padded")
		assert.Equal(t, "1", tbl.Cell(1, "deaths"), "long row truncated")
	})

	t.Run("empty input errors", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		require.Error(t, err)
	})
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := testTable(t)

	var buf strings.Builder
	require.NoError(t, tbl.WriteCSV(&buf))

	back, err := ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(tbl.Columns(), back.Columns()))
	require.Equal(t, tbl.NumRows(), back.NumRows())
	for row := 0; row < tbl.NumRows(); row++ {
		for _, col := range tbl.Columns() {
			assert.Equal(t, tbl.Cell(row, col), back.Cell(row, col))
		}
	}
}
