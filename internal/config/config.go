package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// AppConfig holds the service configuration, populated from environment
// variables (optionally via a .env file).
type AppConfig struct {
	// RegionID selects which pollenrapporten region to poll.
	RegionID string `validate:"required"`

	// PollenTypes lists the pollen type ids to expose as measurements.
	// May be empty.
	PollenTypes []string

	// FetchIntervalHours controls how often the forecast is refreshed.
	FetchIntervalHours int `validate:"min=1,max=24"`

	// BaseURL of the upstream API; overridable for testing.
	BaseURL string `validate:"required,url"`

	// HTTPTimeout bounds each upstream request.
	HTTPTimeout time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg := &AppConfig{
		RegionID:           os.Getenv("POLLEN_REGION_ID"),
		FetchIntervalHours: getenvInt("FETCH_INTERVAL_HOURS", 3),
		BaseURL:            getenvDefault("POLLEN_API_BASE_URL", "https://api.pollenrapporten.se"),
		Port:               getenvDefault("PORT", "8080"),
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	if raw := os.Getenv("POLLEN_TYPES"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.PollenTypes = append(cfg.PollenTypes, id)
			}
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FetchInterval returns the refresh interval as a duration.
func (c *AppConfig) FetchInterval() time.Duration {
	return time.Duration(c.FetchIntervalHours) * time.Hour
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
