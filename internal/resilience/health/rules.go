package health

import (
	"fmt"
	"sort"
	"time"

	"meetscribe/internal/observability/metrics"
	"meetscribe/internal/resilience/apperr"
)

// AddRule inserts or replaces a rule. The ID is the identity; adding a rule
// with an existing ID overwrites it and clears its debounce history so the
// new definition can fire immediately.
func (a *Aggregator) AddRule(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("alert rule requires an id")
	}
	if rule.Service == "" {
		return fmt.Errorf("alert rule %q requires a service", rule.ID)
	}
	switch rule.Metric {
	case MetricErrorRate, MetricAvgResponseTime:
	default:
		return fmt.Errorf("alert rule %q has unknown metric %q", rule.ID, rule.Metric)
	}
	switch rule.Operator {
	case OpGreaterThan, OpLessThan, OpEqual:
	default:
		return fmt.Errorf("alert rule %q has unknown operator %q", rule.ID, rule.Operator)
	}
	if rule.SeverityLabel == "" {
		rule.SeverityLabel = rule.Severity.String()
	} else {
		rule.Severity = parseSeverity(rule.SeverityLabel)
	}

	a.mu.Lock()
	a.rules[rule.ID] = rule
	delete(a.fired, rule.ID)
	a.mu.Unlock()
	return nil
}

// RemoveRule deletes a rule and its debounce history.
// Removing an unknown ID is a no-op.
func (a *Aggregator) RemoveRule(id string) {
	a.mu.Lock()
	delete(a.rules, id)
	delete(a.fired, id)
	a.mu.Unlock()
}

// SetRuleEnabled toggles a rule without touching its other fields.
func (a *Aggregator) SetRuleEnabled(id string, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rule, ok := a.rules[id]
	if !ok {
		return fmt.Errorf("alert rule %q not found", id)
	}
	rule.Enabled = enabled
	a.rules[id] = rule
	return nil
}

// UpdateThreshold changes a rule's threshold in place.
func (a *Aggregator) UpdateThreshold(id string, threshold float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rule, ok := a.rules[id]
	if !ok {
		return fmt.Errorf("alert rule %q not found", id)
	}
	rule.Threshold = threshold
	a.rules[id] = rule
	return nil
}

// Rules returns all rules sorted by ID.
func (a *Aggregator) Rules() []Rule {
	a.mu.Lock()
	rules := make([]Rule, 0, len(a.rules))
	for _, r := range a.rules {
		rules = append(rules, r)
	}
	a.mu.Unlock()

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// evaluateLocked checks every enabled rule for the service against the
// fresh snapshot, applies the debounce window, and returns the alerts to
// dispatch. Caller must hold a.mu; dispatch happens after unlock.
func (a *Aggregator) evaluateLocked(snapshot ServiceHealth, now time.Time) []Alert {
	var alerts []Alert
	for _, rule := range a.rules {
		if !rule.Enabled || rule.Service != snapshot.Service {
			continue
		}

		var value float64
		switch rule.Metric {
		case MetricErrorRate:
			value = snapshot.ErrorRate
		case MetricAvgResponseTime:
			value = snapshot.AvgResponseMs
		default:
			continue
		}

		if !compare(value, rule.Operator, rule.Threshold) {
			continue
		}

		if last, ok := a.fired[rule.ID]; ok && now.Sub(last) < a.debounce {
			metrics.RecordAlertSuppressed(snapshot.Service)
			continue
		}
		a.fired[rule.ID] = now

		alerts = append(alerts, Alert{
			Rule:    rule,
			Service: snapshot.Service,
			Value:   value,
			FiredAt: now,
		})
	}
	return alerts
}

// compare applies a rule operator.
func compare(value float64, op Operator, threshold float64) bool {
	switch op {
	case OpGreaterThan:
		return value > threshold
	case OpLessThan:
		return value < threshold
	case OpEqual:
		return value == threshold
	default:
		return false
	}
}

// parseSeverity maps a serialized severity label to its value.
// Unknown labels default to medium.
func parseSeverity(label string) apperr.Severity {
	switch label {
	case "low":
		return apperr.SeverityLow
	case "medium":
		return apperr.SeverityMedium
	case "high":
		return apperr.SeverityHigh
	case "critical":
		return apperr.SeverityCritical
	default:
		return apperr.SeverityMedium
	}
}
