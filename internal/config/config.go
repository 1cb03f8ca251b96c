package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DataDir is where source CSV snapshots live; SourcesFile is the YAML
	// catalog describing each source's layout and cleaning policy.
	DataDir     string
	SourcesFile string

	// Canonicalization.
	MissingThreshold float64

	// Forecast model.
	MinForecastDays     int
	MaxForecastDays     int
	DefaultForecastDays int
	LongForecastDays    int
	MinTrainingRows     int
	ForestTrees         int
	ForestSeed          int64

	// Kafka snapshot publishing. Disabled unless KAFKA_ENABLED is true.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	missingThreshold, err := parseFraction("MISSING_THRESHOLD", 0.4)
	if err != nil {
		return nil, err
	}

	minDays := parsePositiveInt("FORECAST_MIN_DAYS", 30)
	maxDays := parsePositiveInt("FORECAST_MAX_DAYS", 730)
	defaultDays := parsePositiveInt("FORECAST_DEFAULT_DAYS", 360)
	longDays := parsePositiveInt("FORECAST_LONG_DAYS", 180)

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:     envOrDefault("DATA_DIR", "data"),
		SourcesFile: envOrDefault("SOURCES_FILE", "sources.yaml"),

		MissingThreshold: missingThreshold,

		MinForecastDays:     minDays,
		MaxForecastDays:     maxDays,
		DefaultForecastDays: defaultDays,
		LongForecastDays:    longDays,
		MinTrainingRows:     parsePositiveInt("MIN_TRAINING_ROWS", 10),
		ForestTrees:         parsePositiveInt("FOREST_TREES", 100),
		ForestSeed:          parseSeed("FOREST_SEED", 42),

		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "epi-series-snapshots"),
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
	}

	if cfg.MinForecastDays > cfg.MaxForecastDays {
		return nil, errors.New("FORECAST_MIN_DAYS exceeds FORECAST_MAX_DAYS")
	}
	if cfg.DefaultForecastDays < cfg.MinForecastDays || cfg.DefaultForecastDays > cfg.MaxForecastDays {
		return nil, errors.New("FORECAST_DEFAULT_DAYS outside the min/max range")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFraction(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, fmt.Errorf("invalid %s: want a fraction in [0, 1]", key)
	}
	return v, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseSeed(key string, fallback int64) int64 {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
