package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
sources:
  - name: covid
    adapter: covid
    file: covid.csv
    missing_threshold: 0.3
    protected_columns: [date, new_cases, new_deaths]
  - name: influenza
    adapter: influenza
    file: flu.csv
    locations: [Japan, Brazil]
  - name: sim
    adapter: simulated
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(testCatalogYAML))
	require.NoError(t, err)
	require.Len(t, cat.Sources, 3)

	covid := cat.Sources[0]
	assert.Equal(t, "covid", covid.Name)
	assert.Equal(t, "covid.csv", covid.File)
	require.NotNil(t, covid.MissingThreshold)
	assert.Equal(t, 0.3, *covid.MissingThreshold)
	assert.Equal(t, []string{"date", "new_cases", "new_deaths"}, covid.ProtectedColumns)

	flu := cat.Sources[1]
	assert.Nil(t, flu.MissingThreshold)
	assert.Equal(t, []string{"Japan", "Brazil"}, flu.Locations)

	sim := cat.Sources[2]
	assert.Equal(t, "simulated", sim.Adapter)
	assert.Empty(t, sim.File, "simulated source needs no file")
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errText string
	}{
		{"empty catalog", "sources: []", "no sources"},
		{"missing name", "sources:\n  - adapter: covid\n    file: a.csv", "name is required"},
		{"missing adapter", "sources:\n  - name: covid\n    file: a.csv", "adapter is required"},
		{"missing file", "sources:\n  - name: covid\n    adapter: covid", "file is required"},
		{"duplicate name", "sources:\n  - name: covid\n    adapter: covid\n    file: a.csv\n  - name: covid\n    adapter: zika\n    file: b.csv", "listed twice"},
		{"threshold out of range", "sources:\n  - name: covid\n    adapter: covid\n    file: a.csv\n    missing_threshold: 2", "missing_threshold"},
		{"not yaml", "{{{", "parse source catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))

		cat, err := LoadCatalog(path)
		require.NoError(t, err)
		assert.Len(t, cat.Sources, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
