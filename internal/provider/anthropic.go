package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"meetscribe/internal/resilience/apperr"
)

// AnthropicCompleter generates completions through Anthropic's Messages
// API. It is the primary summarization provider.
type AnthropicCompleter struct {
	client   anthropic.Client
	settings Settings
}

// NewAnthropicCompleter creates an Anthropic-backed completer with the
// given API key. The model defaults to Claude Sonnet and can be overridden
// via the ANTHROPIC_MODEL environment variable.
func NewAnthropicCompleter(apiKey string) *AnthropicCompleter {
	settings, warnings := loadSettings("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929")
	for _, w := range warnings {
		slog.Warn(w)
	}

	slog.Info("initialized anthropic completer",
		slog.String("model", settings.Model),
		slog.Int("max_tokens", settings.MaxTokens))

	return &AnthropicCompleter{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		settings: settings,
	}
}

// Name implements Completer.
func (c *AnthropicCompleter) Name() string { return "llm-anthropic" }

// Complete implements Completer. API failures come back classified so the
// recovery planner can pick the right action.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.settings.Model),
		MaxTokens: int64(c.settings.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "anthropic completion failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", apperr.Wrap(apperr.KindLLMFailure, "anthropic api error", err).
			WithService(c.Name()).WithOperation("complete")
	}

	if len(message.Content) == 0 {
		return "", apperr.New(apperr.KindLLMInvalidResponse, "anthropic api returned empty response").
			WithService(c.Name()).WithOperation("complete")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", apperr.New(apperr.KindLLMInvalidResponse, "anthropic api returned unexpected content type").
			WithService(c.Name()).WithOperation("complete")
	}

	slog.InfoContext(ctx, "anthropic completion succeeded",
		slog.Duration("duration", duration),
		slog.Int("response_length", len(textBlock.Text)))

	return textBlock.Text, nil
}
