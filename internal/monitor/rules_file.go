package monitor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"meetscribe/internal/resilience/health"
)

// rulesDocument is the top-level shape of an alert rules YAML file:
//
//	rules:
//	  - id: transcription-error-rate
//	    service: transcription
//	    metric: error_rate
//	    operator: gt
//	    threshold: 0.2
//	    severity: high
//	    enabled: true
type rulesDocument struct {
	Rules []health.Rule `yaml:"rules"`
}

// LoadRulesFile reads alert rules from a YAML file. The file is parsed and
// returned as-is; structural validation happens when each rule is added to
// the aggregator, so one bad rule is reported individually rather than
// failing the whole file.
func LoadRulesFile(path string) ([]health.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	return doc.Rules, nil
}

// DefaultRules returns the built-in alert rules applied when no rules file
// is configured: sustained error rates on the externally-facing services.
func DefaultRules() []health.Rule {
	return []health.Rule{
		{
			ID:            "transcription-error-rate",
			Service:       "transcription",
			Metric:        health.MetricErrorRate,
			Operator:      health.OpGreaterThan,
			Threshold:     0.2,
			SeverityLabel: "high",
			Enabled:       true,
		},
		{
			ID:            "llm-anthropic-error-rate",
			Service:       "llm-anthropic",
			Metric:        health.MetricErrorRate,
			Operator:      health.OpGreaterThan,
			Threshold:     0.2,
			SeverityLabel: "high",
			Enabled:       true,
		},
		{
			ID:            "postgres-latency",
			Service:       "postgres",
			Metric:        health.MetricAvgResponseTime,
			Operator:      health.OpGreaterThan,
			Threshold:     5000,
			SeverityLabel: "critical",
			Enabled:       true,
		},
	}
}
