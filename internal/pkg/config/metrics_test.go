package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestNewMetrics_Registration tests that metrics are registered correctly
func TestNewMetrics_Registration(t *testing.T) {
	// Unique component name to avoid duplicate registration panics
	metrics := NewMetrics("test_component_registration")

	assert.NotNil(t, metrics.LoadTimestamp, "LoadTimestamp should be initialized")
	assert.NotNil(t, metrics.FallbacksTotal, "FallbacksTotal should be initialized")
	assert.NotNil(t, metrics.FallbackActive, "FallbackActive should be initialized")
}

// TestNewMetrics_UniqueNames tests that different components create unique metrics
func TestNewMetrics_UniqueNames(t *testing.T) {
	monitorMetrics := NewMetrics("test_monitor_unique")
	proberMetrics := NewMetrics("test_prober_unique")

	assert.NotSame(t, monitorMetrics.LoadTimestamp, proberMetrics.LoadTimestamp,
		"Different components should have different metric instances")

	// Both should record without panic
	monitorMetrics.RecordLoad(nil)
	proberMetrics.RecordLoad(nil)
}

// TestRecordLoad_CleanLoad tests a load with no fallbacks
func TestRecordLoad_CleanLoad(t *testing.T) {
	metrics := NewMetrics("test_clean_load")

	metrics.RecordLoad(nil)

	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0),
		"Load timestamp should be recorded")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive),
		"Fallback active should be 0 on a clean load")
	assert.Equal(t, float64(0),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("any_field")),
		"No fallbacks should be recorded")
}

// TestRecordLoad_WithFallbacks tests a load where fields fell back to defaults
func TestRecordLoad_WithFallbacks(t *testing.T) {
	metrics := NewMetrics("test_fallback_load")

	metrics.RecordLoad([]string{"metrics_port", "alert_debounce"})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive),
		"Fallback active should be 1 when any field fell back")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("metrics_port")),
		"Fallback should be counted per field")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("alert_debounce")),
		"Fallback should be counted per field")
}

// TestRecordLoad_Recovery tests that a clean reload clears the active flag
func TestRecordLoad_Recovery(t *testing.T) {
	metrics := NewMetrics("test_fallback_recovery")

	metrics.RecordLoad([]string{"metrics_port"})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))

	metrics.RecordLoad(nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive),
		"A clean reload should clear the active flag")

	// The counter keeps history across loads
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("metrics_port")),
		"Fallback counter should not reset")
}

// TestRecordLoad_RepeatedFallbacks tests counter accumulation across loads
func TestRecordLoad_RepeatedFallbacks(t *testing.T) {
	metrics := NewMetrics("test_repeated_fallbacks")

	metrics.RecordLoad([]string{"health_port"})
	metrics.RecordLoad([]string{"health_port"})
	metrics.RecordLoad([]string{"health_port"})

	assert.Equal(t, float64(3),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("health_port")),
		"Each load should increment the per-field counter")
}
