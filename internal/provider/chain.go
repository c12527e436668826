package provider

import (
	"context"
	"log/slog"

	"meetscribe/internal/resilience/apperr"
	"meetscribe/internal/resilience/circuit"
)

// Chain tries completers in order until one succeeds. Every call goes
// through the circuit registry under the completer's name, so a provider
// whose circuit is open is skipped without being invoked and the chain
// moves straight to the next one.
type Chain struct {
	registry   *circuit.Registry
	completers []Completer
}

// NewChain creates a failover chain over the given completers, in priority
// order. Each completer's circuit must already be registered under its
// Name().
func NewChain(registry *circuit.Registry, completers ...Completer) *Chain {
	return &Chain{registry: registry, completers: completers}
}

// Name implements Completer, so a chain can stand in wherever a single
// provider is expected.
func (c *Chain) Name() string { return "llm" }

// Complete implements Completer. It returns the first successful
// completion; if every provider fails or is short-circuited, it returns the
// last error classified as an LLM failure.
func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.completers) == 0 {
		return "", apperr.New(apperr.KindConfiguration, "no completion providers configured").
			WithService(c.Name()).WithOperation("complete")
	}

	var lastErr error
	for _, completer := range c.completers {
		result, err := c.registry.Execute(ctx, completer.Name(), func(ctx context.Context) (any, error) {
			return completer.Complete(ctx, prompt)
		}, nil)
		if err == nil {
			return result.(string), nil
		}

		lastErr = err
		slog.WarnContext(ctx, "completion provider failed, trying next",
			slog.String("provider", completer.Name()),
			slog.String("error", err.Error()))
	}

	return "", apperr.Wrap(apperr.KindLLMFailure, "all completion providers failed", lastErr).
		WithService(c.Name()).WithOperation("complete")
}
