package config

import (
	"os"
	"strconv"
	"time"

	"github.com/obplab/swingmech/internal/log"
)

// ParseString reads a string from an environment variable or returns the
// default value. Empty values fall back to the default.
func ParseString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the
// default value. It falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment, using default")
	}
	return defaultValue
}

// ParseFloat reads a float from an environment variable or returns the
// default value. It falls back to the default on parse errors.
func ParseFloat(key string, defaultValue float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment, using default")
	}
	return defaultValue
}

// ParseBool reads a boolean from an environment variable or returns the
// default value. Accepts the strconv.ParseBool forms.
func ParseBool(key string, defaultValue bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment, using default")
	}
	return defaultValue
}

// ParseDuration reads a duration ("2s", "150ms") from an environment variable
// or returns the default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment, using default")
	}
	return defaultValue
}
