package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceSpec describes one surveillance feed in the YAML source catalog:
// which adapter parses it, where its CSV snapshot lives, and any per-source
// overrides of the cleaning policy.
type SourceSpec struct {
	// Name is the source identifier used in requests, e.g. "covid".
	Name string `yaml:"name"`

	// Adapter selects the parsing strategy. One of the registered adapter
	// kinds: covid, influenza, zika, simulated.
	Adapter string `yaml:"adapter"`

	// File is the CSV snapshot path, relative to DATA_DIR unless absolute.
	File string `yaml:"file"`

	// MissingThreshold overrides the global column-drop threshold when set.
	MissingThreshold *float64 `yaml:"missing_threshold,omitempty"`

	// ProtectedColumns are never dropped regardless of missing fraction.
	ProtectedColumns []string `yaml:"protected_columns,omitempty"`

	// Locations restricts the source to an allow-list of locations. Empty
	// means every location present in the snapshot is served.
	Locations []string `yaml:"locations,omitempty"`
}

// Catalog is the parsed source catalog.
type Catalog struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadCatalog reads and validates the YAML source catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse source catalog: %w", err)
	}
	if len(cat.Sources) == 0 {
		return nil, fmt.Errorf("source catalog lists no sources")
	}

	seen := make(map[string]bool, len(cat.Sources))
	for i, src := range cat.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("source %q listed twice", src.Name)
		}
		seen[src.Name] = true
		if src.Adapter == "" {
			return nil, fmt.Errorf("source %q: adapter is required", src.Name)
		}
		if src.File == "" && src.Adapter != "simulated" {
			return nil, fmt.Errorf("source %q: file is required", src.Name)
		}
		if src.MissingThreshold != nil && (*src.MissingThreshold < 0 || *src.MissingThreshold > 1) {
			return nil, fmt.Errorf("source %q: missing_threshold must be in [0, 1]", src.Name)
		}
	}
	return &cat, nil
}
