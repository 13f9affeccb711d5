package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultPivotYear is used when PIVOT_YEAR is unset.
const DefaultPivotYear = 2014

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputPath    string
	PivotYear    int
	OutputDir    string
	ChartEnabled bool

	// Kafka sink; disabled when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaSeriesTopic string
	KafkaPivotTopic  string

	// PostgreSQL sink; disabled when DatabaseURL is empty.
	DatabaseURL string

	HTTPAddr        string
	Serve           bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// KafkaEnabled reports whether the Kafka sink is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether the PostgreSQL sink is configured.
func (c *Config) PostgresEnabled() bool { return c.DatabaseURL != "" }

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; real environment wins

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	pivotYear, err := parsePivotYear()
	if err != nil {
		return nil, err
	}

	chartEnabled, err := parseBool("CHART_ENABLED", true)
	if err != nil {
		return nil, err
	}

	serve, err := parseBool("SERVE", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		InputPath:    sharedcfg.EnvOrDefault("WEATHER_CSV_PATH", "weather.csv"),
		PivotYear:    pivotYear,
		OutputDir:    outputDir(),
		ChartEnabled: chartEnabled,

		KafkaBrokers:     brokers,
		KafkaSeriesTopic: sharedcfg.EnvOrDefault("KAFKA_SERIES_TOPIC", "precipitation-series"),
		KafkaPivotTopic:  sharedcfg.EnvOrDefault("KAFKA_PIVOT_TOPIC", "precipitation-pivot"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		Serve:           serve,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if strings.TrimSpace(cfg.InputPath) == "" {
		return nil, errors.New("WEATHER_CSV_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// outputDir distinguishes an unset OUTPUT_DIR (default "out") from an
// explicitly empty one, which disables file output.
func outputDir() string {
	if v, ok := os.LookupEnv("OUTPUT_DIR"); ok {
		return strings.TrimSpace(v)
	}
	return "out"
}

func parsePivotYear() (int, error) {
	s := os.Getenv("PIVOT_YEAR")
	if s == "" {
		return DefaultPivotYear, nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("invalid PIVOT_YEAR: %q", s)
	}
	return year, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
