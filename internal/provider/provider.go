// Package provider contains the LLM client adapters used to generate
// meeting summaries and action items, plus a failover chain that routes
// each request through the circuit registry and falls back to the next
// provider when one is down.
package provider

import (
	"context"
	"time"

	"meetscribe/internal/pkg/config"
)

// Completer generates a text completion for a prompt. Implementations wrap
// one provider SDK and normalize its failures into classified errors.
type Completer interface {
	// Name returns the provider's logical name, which doubles as its
	// circuit name in the registry.
	Name() string

	// Complete sends the prompt and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Settings holds the per-provider tunables shared by both adapters.
type Settings struct {
	// Model is the provider-specific model identifier.
	Model string

	// MaxTokens caps the response length.
	MaxTokens int

	// Timeout bounds a single completion call.
	Timeout time.Duration
}

func loadSettings(modelEnv, defaultModel string) (Settings, []string) {
	var warnings []string

	maxTokens := config.LoadEnvInt("LLM_MAX_TOKENS", 1024, func(v int) error {
		return config.ValidateIntRange(v, 1, 8192)
	})
	warnings = append(warnings, maxTokens.Warnings...)

	timeout := config.LoadEnvDuration("LLM_TIMEOUT", 60*time.Second, config.ValidatePositiveDuration)
	warnings = append(warnings, timeout.Warnings...)

	return Settings{
		Model:     config.LoadEnvString(modelEnv, defaultModel),
		MaxTokens: maxTokens.Value,
		Timeout:   timeout.Value,
	}, warnings
}
