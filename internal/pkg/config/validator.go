package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule validates a schedule string using the robfig/cron/v3
// parser, accepting both standard five-field expressions ("30 5 * * *") and
// descriptors ("@every 1m", "@hourly").
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ValidateDuration validates that a duration falls within [min, max]
// inclusive.
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}
	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}
	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
// Common for timeouts, delays, and debounce windows where zero would mean
// disabled behavior.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}
	return nil
}

// ValidateIntRange validates that an integer falls within [min, max]
// inclusive. Used for ports, thresholds, and attempt counts.
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}
	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}
	return nil
}

// ValidateFloatRange validates that a float falls within [min, max]
// inclusive. Used for error-rate thresholds.
func ValidateFloatRange(value, min, max float64) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%g) cannot be greater than max (%g)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %g is below minimum %g", value, min)
	}
	if value > max {
		return fmt.Errorf("value %g exceeds maximum %g", value, max)
	}
	return nil
}
