// Package resilience groups the fault tolerance building blocks used around
// every external dependency: transcription and model providers, postgres,
// redis, and client websockets.
//
// The subpackages compose bottom-up:
//   - apperr classifies raw errors into a closed set of kinds with severity
//   - circuit guards calls with named breakers behind a shared registry
//   - retry re-runs transient failures with exponential backoff and jitter
//   - health tracks per-service error rates and latency and fires alerts
//   - recovery maps error kinds to actions and drives automated recovery
//
// Usage:
//
//	registry := circuit.NewRegistry()
//	registry.Register("llm-anthropic", circuit.LLMAPIConfig())
//
//	planner := recovery.NewPlanner(registry, aggregator)
//	result, action, err := planner.Execute(ctx, "llm-anthropic", op, nil)
package resilience
