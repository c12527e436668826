package provider

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"meetscribe/internal/resilience/apperr"
)

// OpenAICompleter generates completions through OpenAI's chat completion
// API. It serves as the fallback provider when Anthropic is unavailable.
type OpenAICompleter struct {
	client   *openai.Client
	settings Settings
}

// NewOpenAICompleter creates an OpenAI-backed completer with the given API
// key. The model defaults to gpt-4o-mini and can be overridden via the
// OPENAI_MODEL environment variable.
func NewOpenAICompleter(apiKey string) *OpenAICompleter {
	settings, warnings := loadSettings("OPENAI_MODEL", "gpt-4o-mini")
	for _, w := range warnings {
		slog.Warn(w)
	}

	slog.Info("initialized openai completer",
		slog.String("model", settings.Model),
		slog.Int("max_tokens", settings.MaxTokens))

	return &OpenAICompleter{
		client:   openai.NewClient(apiKey),
		settings: settings,
	}
}

// Name implements Completer.
func (c *OpenAICompleter) Name() string { return "llm-openai" }

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.settings.Model,
		MaxTokens: c.settings.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "openai completion failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", apperr.Wrap(apperr.KindLLMFailure, "openai api error", err).
			WithService(c.Name()).WithOperation("complete")
	}

	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindLLMInvalidResponse, "openai api returned empty response").
			WithService(c.Name()).WithOperation("complete")
	}

	slog.InfoContext(ctx, "openai completion succeeded",
		slog.Duration("duration", duration),
		slog.Int("response_length", len(resp.Choices[0].Message.Content)))

	return resp.Choices[0].Message.Content, nil
}
