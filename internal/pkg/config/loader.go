// Package config provides environment-variable loading helpers with
// validation and fallback-to-default behavior. Loaders never return errors:
// an invalid value falls back to the default and surfaces as a warning, so
// a typo in one variable cannot keep the process from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result is the outcome of loading one configuration value. Value holds
// the loaded value, or the default when parsing or validation failed;
// FallbackApplied reports which, and Warnings carries one message per
// fallback for the caller to log.
type Result[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fallback[T any](envKey, raw string, reason error, def T) Result[T] {
	warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
		envKey, raw, reason, def)
	return Result[T]{Value: def, Warnings: []string{warning}, FallbackApplied: true}
}

// LoadEnvString loads a string from the environment. An unset or empty
// variable yields the default. No validation is applied; use
// LoadEnvStringValidated when one is needed.
func LoadEnvString(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnvStringValidated loads a string and runs it through the validator.
// An unset variable yields the default silently; a set but invalid value
// yields the default with a warning.
func LoadEnvStringValidated(envKey, defaultValue string, validator func(string) error) Result[string] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ok(defaultValue)
	}
	if validator != nil {
		if err := validator(raw); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return ok(raw)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m"). Parse
// failures and validator rejections fall back to the default with a warning.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ok(defaultValue)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(envKey, raw, err, defaultValue)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return ok(parsed)
}

// LoadEnvInt loads an integer. Parse failures and validator rejections fall
// back to the default with a warning.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ok(defaultValue)
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(envKey, raw, fmt.Errorf("invalid integer format"), defaultValue)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return ok(parsed)
}

// LoadEnvFloat loads a float64, used for rate and threshold settings.
// Parse failures and validator rejections fall back to the default with a
// warning.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) Result[float64] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ok(defaultValue)
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback(envKey, raw, fmt.Errorf("invalid number format"), defaultValue)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return ok(parsed)
}

// LoadEnvBool loads a boolean. Accepted spellings follow strconv.ParseBool
// ("1", "t", "true", "0", "f", "false", any casing of true/false). Anything
// else falls back to the default with a warning.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ok(defaultValue)
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(envKey, raw, fmt.Errorf("invalid boolean format, expected 'true' or 'false'"), defaultValue)
	}
	return ok(parsed)
}
