package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	DatabasePath string

	// Price feed (Market Data Oracle)
	PriceFeedURL        string
	PriceFeedTimeoutSec int

	// Execution
	SlippageRate float64 // Adverse fill adjustment, fraction of reference price

	// API keys accepted by the identity middleware, comma-separated
	// "key:user_id" pairs
	APIKeys map[string]string

	// Mark-to-market sweep
	SweepSchedule  string
	MarkConcurrent int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8080),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabasePath:        getEnv("DATABASE_PATH", "./data/papertrader.db"),
		PriceFeedURL:        getEnv("PRICE_FEED_URL", "http://localhost:9100"),
		PriceFeedTimeoutSec: getEnvAsInt("PRICE_FEED_TIMEOUT_SEC", 10),
		SlippageRate:        getEnvAsFloat("SLIPPAGE_RATE", 0.001),
		APIKeys:             parseAPIKeys(getEnv("API_KEYS", "")),
		SweepSchedule:       getEnv("SWEEP_SCHEDULE", "@every 5m"),
		MarkConcurrent:      getEnvAsInt("MARK_CONCURRENT", 8),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1-65535, got %d", c.Port)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 0.1 {
		return fmt.Errorf("SLIPPAGE_RATE must be in [0, 0.1), got %f", c.SlippageRate)
	}
	if c.MarkConcurrent < 1 {
		return fmt.Errorf("MARK_CONCURRENT must be at least 1, got %d", c.MarkConcurrent)
	}
	return nil
}

// parseAPIKeys parses "key:user" pairs; entries without a user id are skipped
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		keys[parts[0]] = parts[1]
	}
	return keys
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
