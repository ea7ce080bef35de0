// Package config reads the process configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// The 511.org endpoints for Caltrain. All four take the API key as
// an api_key query parameter, appended at fetch time.
const (
	DefaultStaticURL           = "https://api.511.org/transit/datafeeds?operator_id=CT"
	DefaultTripUpdatesURL      = "https://api.511.org/transit/tripupdates?agency=CT"
	DefaultVehiclePositionsURL = "https://api.511.org/transit/vehiclepositions?agency=CT"
	DefaultAlertsURL           = "https://api.511.org/transit/servicealerts?agency=CT"
)

type Config struct {
	// Upstream.
	APIKey              string
	StaticURL           string
	TripUpdatesURL      string
	VehiclePositionsURL string
	AlertsURL           string

	// KV store.
	KVBackend string // memory, sqlite, postgres, redis
	KVDSN     string

	// HTTP surface.
	Addr string

	// Cadences and validation.
	RealtimeInterval time.Duration
	ScheduleInterval time.Duration
	MinEndDate       int // YYYYMMDD

	LogLevel slog.Level
}

// Load reads configuration from the environment, after loading an
// optional .env file. Every variable has a default except the API
// key; a missing key is not an error here, the workers skip their
// runs without it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	now := time.Now()
	cfg := &Config{
		APIKey:              secretEnv("TRANSIT_API_KEY"),
		StaticURL:           getEnv("TRANSIT_STATIC_URL", DefaultStaticURL),
		TripUpdatesURL:      getEnv("TRANSIT_TRIPUPDATES_URL", DefaultTripUpdatesURL),
		VehiclePositionsURL: getEnv("TRANSIT_VEHICLEPOSITIONS_URL", DefaultVehiclePositionsURL),
		AlertsURL:           getEnv("TRANSIT_ALERTS_URL", DefaultAlertsURL),

		KVBackend: getEnv("TRANSIT_KV_BACKEND", "memory"),
		KVDSN:     getEnv("TRANSIT_KV_DSN", ""),

		Addr: getEnv("TRANSIT_ADDR", ":8080"),

		MinEndDate: now.Year()*10000 + int(now.Month())*100 + now.Day(),
	}

	var err error
	cfg.RealtimeInterval, err = getEnvDuration("TRANSIT_REALTIME_INTERVAL", 120*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ScheduleInterval, err = getEnvDuration("TRANSIT_SCHEDULE_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	if raw := os.Getenv("TRANSIT_MIN_END_DATE"); raw != "" {
		date, err := strconv.Atoi(raw)
		if err != nil || len(raw) != 8 {
			return nil, fmt.Errorf("TRANSIT_MIN_END_DATE must be YYYYMMDD, got %q", raw)
		}
		cfg.MinEndDate = date
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// secretEnv reads a secret from KEY, or from the file named by
// KEY_FILE when KEY itself is unset.
func secretEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return ""
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", raw)
}
