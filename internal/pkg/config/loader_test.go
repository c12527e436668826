package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Group 1: LoadEnvString
// ============================================================================

func TestLoadEnvString_WithValue(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")

	result := LoadEnvString("TEST_STRING", "default_value")

	assert.Equal(t, "custom_value", result)
}

func TestLoadEnvString_WithoutValue(t *testing.T) {
	// Don't set TEST_STRING

	result := LoadEnvString("TEST_STRING", "default_value")

	assert.Equal(t, "default_value", result)
}

func TestLoadEnvString_EmptyString(t *testing.T) {
	t.Setenv("TEST_STRING", "")

	result := LoadEnvString("TEST_STRING", "default_value")

	// Empty string should use default
	assert.Equal(t, "default_value", result)
}

// ============================================================================
// Test Group 2: LoadEnvStringValidated
// ============================================================================

func TestLoadEnvStringValidated_WithValidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "0 6 * * *")

	result := LoadEnvStringValidated("TEST_CRON", "30 5 * * *", ValidateCronSchedule)

	assert.Equal(t, "0 6 * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvStringValidated_WithoutValue(t *testing.T) {
	// Don't set TEST_CRON

	result := LoadEnvStringValidated("TEST_CRON", "30 5 * * *", ValidateCronSchedule)

	assert.Equal(t, "30 5 * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvStringValidated_WithInvalidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "not a cron expression")

	result := LoadEnvStringValidated("TEST_CRON", "30 5 * * *", ValidateCronSchedule)

	assert.Equal(t, "30 5 * * *", result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "TEST_CRON")
	assert.Contains(t, result.Warnings[0], "falling back to default")
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvStringValidated_NilValidator(t *testing.T) {
	t.Setenv("TEST_STRING", "anything goes")

	result := LoadEnvStringValidated("TEST_STRING", "default", nil)

	assert.Equal(t, "anything goes", result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvStringValidated_AcceptsDescriptor(t *testing.T) {
	t.Setenv("TEST_CRON", "@every 1m")

	result := LoadEnvStringValidated("TEST_CRON", "30 5 * * *", ValidateCronSchedule)

	assert.Equal(t, "@every 1m", result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 3: LoadEnvDuration
// ============================================================================

func TestLoadEnvDuration_WithValidValue(t *testing.T) {
	t.Setenv("TEST_DURATION", "45s")

	result := LoadEnvDuration("TEST_DURATION", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 45*time.Second, result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_WithoutValue(t *testing.T) {
	result := LoadEnvDuration("TEST_DURATION", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 30*time.Second, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_ParseFailure(t *testing.T) {
	t.Setenv("TEST_DURATION", "ninety seconds")

	result := LoadEnvDuration("TEST_DURATION", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 30*time.Second, result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvDuration_ValidatorRejects(t *testing.T) {
	t.Setenv("TEST_DURATION", "-5m")

	result := LoadEnvDuration("TEST_DURATION", 30*time.Second, ValidatePositiveDuration)

	assert.Equal(t, 30*time.Second, result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.True(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 4: LoadEnvInt
// ============================================================================

func TestLoadEnvInt_WithValidValue(t *testing.T) {
	t.Setenv("TEST_INT", "8080")

	result := LoadEnvInt("TEST_INT", 9090, func(v int) error { return ValidateIntRange(v, 1024, 65535) })

	assert.Equal(t, 8080, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvInt_ParseFailure(t *testing.T) {
	t.Setenv("TEST_INT", "eight thousand")

	result := LoadEnvInt("TEST_INT", 9090, nil)

	assert.Equal(t, 9090, result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "invalid integer format")
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvInt_ValidatorRejects(t *testing.T) {
	t.Setenv("TEST_INT", "80")

	result := LoadEnvInt("TEST_INT", 9090, func(v int) error { return ValidateIntRange(v, 1024, 65535) })

	assert.Equal(t, 9090, result.Value)
	assert.True(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 5: LoadEnvFloat
// ============================================================================

func TestLoadEnvFloat_WithValidValue(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.25")

	result := LoadEnvFloat("TEST_FLOAT", 0.2, func(v float64) error { return ValidateFloatRange(v, 0, 1) })

	assert.Equal(t, 0.25, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvFloat_ParseFailure(t *testing.T) {
	t.Setenv("TEST_FLOAT", "a quarter")

	result := LoadEnvFloat("TEST_FLOAT", 0.2, nil)

	assert.Equal(t, 0.2, result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvFloat_ValidatorRejects(t *testing.T) {
	t.Setenv("TEST_FLOAT", "1.5")

	result := LoadEnvFloat("TEST_FLOAT", 0.2, func(v float64) error { return ValidateFloatRange(v, 0, 1) })

	assert.Equal(t, 0.2, result.Value)
	assert.True(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 6: LoadEnvBool
// ============================================================================

func TestLoadEnvBool_WithValidValues(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		"TRUE":  true,
		"1":     true,
		"t":     true,
		"false": false,
		"0":     false,
		"f":     false,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("TEST_BOOL", raw)

			result := LoadEnvBool("TEST_BOOL", !want)

			assert.Equal(t, want, result.Value)
			assert.False(t, result.FallbackApplied)
		})
	}
}

func TestLoadEnvBool_ParseFailure(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")

	result := LoadEnvBool("TEST_BOOL", true)

	assert.True(t, result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "invalid boolean format")
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool_WithoutValue(t *testing.T) {
	result := LoadEnvBool("TEST_BOOL", true)

	assert.True(t, result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 7: Warning message format
// ============================================================================

func TestWarningMessageFormat(t *testing.T) {
	t.Setenv("TEST_INT", "bogus")

	result := LoadEnvInt("TEST_INT", 42, nil)

	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Invalid TEST_INT='bogus'")
	assert.Contains(t, result.Warnings[0], "falling back to default '42'")
}
