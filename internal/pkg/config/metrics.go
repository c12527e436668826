package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks configuration loading for one component: when it last
// loaded, and whether any value fell back to its default. A fallback showing
// up on the dashboard usually means a typo in a deployment manifest.
//
// Metric names are prefixed with the component name, so each component must
// construct its own instance exactly once (promauto panics on duplicate
// registration).
type Metrics struct {
	LoadTimestamp  prometheus.Gauge
	FallbacksTotal *prometheus.CounterVec
	FallbackActive prometheus.Gauge
}

// NewMetrics creates and registers configuration metrics for the named
// component (e.g. "monitor").
func NewMetrics(componentName string) *Metrics {
	return &Metrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field"}),
		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),
	}
}

// RecordLoad stamps the load timestamp and records fallback state. Call once
// after loading configuration, passing the fields that fell back to
// defaults.
func (m *Metrics) RecordLoad(fallbackFields []string) {
	m.LoadTimestamp.SetToCurrentTime()
	for _, field := range fallbackFields {
		m.FallbacksTotal.WithLabelValues(field).Inc()
	}
	if len(fallbackFields) > 0 {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
