package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string
	LogFormat   string

	ShutdownTimeout time.Duration

	// Upstream endpoints.
	SenamhiForecastURL string
	SenamhiWarningsAPI string
	GeoserverURL       string
	OpenMeteoURL       string
	UserAgent          string

	// Scrape behavior.
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Departments    []string // empty means all departments
	RetainExpired  bool

	// Scheduler intervals.
	ForecastInterval time.Duration
	WarningInterval  time.Duration
	StartImmediately bool

	// Geometry support. Defaults to true for postgres:// URLs, can be forced
	// off to run against a database without PostGIS.
	GeospatialEnabled bool

	// Local caches and side-channel files.
	ShapefileDir    string
	CoordinatesFile string
}

// ScrapeAllDepartments reports whether no explicit department list was
// configured.
func (c *Config) ScrapeAllDepartments() bool {
	return len(c.Departments) == 0
}

// Load reads configuration from the environment (and a .env file when
// present), applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env is fine; explicit env vars always win.
	_ = godotenv.Load()

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retryDelay, err := durationEnv("RETRY_DELAY", 60*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	forecastInterval, err := durationEnv("FORECAST_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	warningInterval, err := durationEnv("WARNING_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	maxRetries, err := intEnv("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: envOrDefault("DATABASE_URL", ""),
		HTTPAddr:    envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "json"),

		ShutdownTimeout: shutdownTimeout,

		SenamhiForecastURL: envOrDefault("SENAMHI_FORECAST_URL", "https://www.senamhi.gob.pe/?p=pronostico-meteorologico"),
		SenamhiWarningsAPI: envOrDefault("SENAMHI_WARNINGS_API", "https://www.senamhi.gob.pe/app_senamhi/sisper/api/avisoMeteoroCabEmergencia"),
		GeoserverURL:       envOrDefault("GEOSERVER_URL", "https://idesep.senamhi.gob.pe/geoserver/g_aviso/ows"),
		OpenMeteoURL:       envOrDefault("OPENMETEO_URL", "https://api.open-meteo.com/v1/forecast"),
		UserAgent:          envOrDefault("USER_AGENT", "senamhi-tracker/1.0"),

		RequestTimeout: requestTimeout,
		MaxRetries:     maxRetries,
		RetryDelay:     retryDelay,
		Departments:    parseDepartments(os.Getenv("DEPARTMENTS")),
		RetainExpired:  boolEnv("RETAIN_EXPIRED", false),

		ForecastInterval: forecastInterval,
		WarningInterval:  warningInterval,
		StartImmediately: boolEnv("START_IMMEDIATELY", true),

		ShapefileDir:    envOrDefault("SHAPEFILE_DIR", "data/shapefiles"),
		CoordinatesFile: envOrDefault("COORDINATES_FILE", "config/coordinates.yaml"),
	}

	cfg.GeospatialEnabled = boolEnv("GEOSPATIAL_ENABLED", strings.HasPrefix(cfg.DatabaseURL, "postgres"))

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.MaxRetries < 1 {
		return nil, errors.New("MAX_RETRIES must be at least 1")
	}
	if cfg.GeospatialEnabled && !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		return nil, errors.New("GEOSPATIAL_ENABLED requires a postgres DATABASE_URL")
	}

	return cfg, nil
}

// parseDepartments splits a comma-separated department list. The "ALL"
// sentinel (or an empty value) selects every department.
func parseDepartments(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "ALL") {
		return nil
	}
	var departments []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.ToUpper(strings.TrimSpace(part)); name != "" {
			departments = append(departments, name)
		}
	}
	return departments
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
