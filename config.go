package trendtap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Config holds all environment-driven settings
type Config struct {
	DBPath       string
	LogMode      string
	TimeBudget   time.Duration
	Collateral   string // "template" or "openai"
	OpenAIAPIKey string
	OpenAIModel  string
}

// LoadConfig reads the configuration from the environment.
// TRENDTAP_TIME_BUDGET is an ISO-8601 duration such as PT30S.
func LoadConfig() (Config, error) {
	cfg := Config{
		DBPath:       getenvDefault("TRENDTAP_DB_PATH", "trendtap.db"),
		LogMode:      getenvDefault("TRENDTAP_LOG_MODE", "dev"),
		Collateral:   strings.ToLower(getenvDefault("TRENDTAP_COLLATERAL", "template")),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getenvDefault("OPENAI_MODEL", defaultCollateralModel),
	}

	if raw := os.Getenv("TRENDTAP_TIME_BUDGET"); raw != "" {
		budget, err := ParseTimeBudget(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.TimeBudget = budget
	}

	switch cfg.Collateral {
	case "template":
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when TRENDTAP_COLLATERAL=openai")
		}
	default:
		return Config{}, fmt.Errorf("unknown TRENDTAP_COLLATERAL %q", cfg.Collateral)
	}
	return cfg, nil
}

// ParseTimeBudget parses an ISO-8601 duration
func ParseTimeBudget(raw string) (time.Duration, error) {
	d, err := duration.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time budget %q: %w", raw, err)
	}
	budget := d.ToTimeDuration()
	if budget < 0 {
		return 0, fmt.Errorf("invalid time budget %q: negative", raw)
	}
	return budget, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
