// Package config loads the screening engine's environment-variable
// configuration, with a .env file as an optional override source.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full set of environment-driven settings the engine needs
// at startup. Numeric fields carry the vendor-quota-safe defaults the
// ingestion and selection components assume when the corresponding
// environment variable is absent.
type Config struct {
	DataDir string // base directory for the sqlite store file

	LogLevel string
	LogPretty bool

	PrimaryVendorToken string // token for the full-surface vendor; empty disables it

	// Ingestion tuning
	VendorCallDelay    time.Duration // inter-call delay within one ingestion date
	VendorRetryCount    int
	VendorRetryBaseDelay time.Duration

	// SourceRouter tuning
	RouterCacheTTL time.Duration

	// SelectionRunner tuning
	SelectionConcurrency int
	SelectionBatchSize   int
	SelectionTimeout     time.Duration
}

// Load reads configuration from the process environment, with an optional
// .env file loaded first (godotenv.Load() silently no-ops if absent).
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		DataDir:  getEnv("DATA_DIR", "./data"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		PrimaryVendorToken: getEnv("PRIMARY_VENDOR_TOKEN", ""),

		VendorCallDelay:      getEnvAsDuration("VENDOR_CALL_DELAY_MS", 500*time.Millisecond),
		VendorRetryCount:     getEnvAsInt("VENDOR_RETRY_COUNT", 3),
		VendorRetryBaseDelay: getEnvAsDuration("VENDOR_RETRY_BASE_DELAY_MS", 2*time.Second),

		RouterCacheTTL: getEnvAsDuration("ROUTER_CACHE_TTL_MS", 5*time.Minute),

		// 0 means "auto": SelectionRunner derives min(32, max(4, 2*NumCPU())).
		SelectionConcurrency: getEnvAsInt("ADVANCED_SELECTION_CONCURRENCY", 0),
		SelectionBatchSize:   getEnvAsInt("ADVANCED_SELECTION_BATCH_SIZE", 256),
		SelectionTimeout:     time.Duration(getEnvAsInt("ADVANCED_SELECTION_TIMEOUT", 1200)) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration parses an integer-milliseconds environment variable;
// every key read through it carries an _MS suffix.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}
