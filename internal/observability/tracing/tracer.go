// Package tracing holds the OpenTelemetry tracer handle for the resilience
// core. Exporter and provider setup belong to the embedding application;
// without one, spans are no-ops.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the process-wide tracer for meetscribe spans.
var tracer = otel.Tracer("meetscribe")

// Tracer returns the tracer for creating spans.
//
// Example usage:
//
//	ctx, span := tracing.Tracer().Start(ctx, "operation-name")
//	defer span.End()
func Tracer() trace.Tracer {
	return tracer
}
