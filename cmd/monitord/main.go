// Command monitord runs the resilience monitor for the meeting-notes
// service: it owns the circuit registry, aggregates dependency health,
// sweeps synthetic probes, dispatches alerts, and serves the health and
// metrics endpoints the rest of the deployment scrapes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"meetscribe/internal/alertsink"
	"meetscribe/internal/infra/db"
	"meetscribe/internal/monitor"
	"meetscribe/internal/observability/logging"
	pkgconfig "meetscribe/internal/pkg/config"
	"meetscribe/internal/probe"
	"meetscribe/internal/provider"
	"meetscribe/internal/resilience/circuit"
	"meetscribe/internal/resilience/health"
	"meetscribe/internal/resilience/recovery"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configMetrics := pkgconfig.NewMetrics("monitor")
	cfg, err := monitor.LoadConfigFromEnv(logger, configMetrics)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("metrics_port", cfg.MetricsPort),
		slog.Int("health_port", cfg.HealthPort),
		slog.Duration("alert_debounce", cfg.AlertDebounce),
		slog.Bool("slack_enabled", cfg.SlackWebhookURL != ""))

	registry := newCircuitRegistry(logger)
	aggregator := newAggregator(logger, cfg)
	planner := recovery.NewPlanner(registry, aggregator)

	setupProviders(logger, registry, planner)
	cleanup := setupProbers(logger, cfg, aggregator)
	defer cleanup()

	if err := aggregator.Start(); err != nil {
		logger.Error("failed to start health scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer aggregator.Stop()

	monitor.StartMetricsServer(ctx, logger, cfg.MetricsPort)

	healthServer := monitor.NewHealthServer(healthAddr(cfg), logger, registry, aggregator)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	healthServer.SetReady(true)
	logger.Info("monitor started")

	if err := g.Wait(); err != nil {
		logger.Error("monitor exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("monitor stopped")
}

func healthAddr(cfg *monitor.Config) string {
	return fmt.Sprintf(":%d", cfg.HealthPort)
}

// newCircuitRegistry registers one circuit per downstream dependency, each
// with thresholds tuned to how that dependency fails.
func newCircuitRegistry(logger *slog.Logger) *circuit.Registry {
	registry := circuit.NewRegistry()

	registry.Register("transcription", circuit.TranscriptionAPIConfig())
	registry.Register("llm-anthropic", circuit.LLMAPIConfig())
	registry.Register("llm-openai", circuit.LLMAPIConfig())
	registry.Register("postgres", circuit.DatabaseConfig())
	registry.Register("redis", circuit.CacheConfig())
	registry.Register("websocket", circuit.WebSocketConfig())

	logger.Info("circuit registry initialized", slog.Int("circuits", len(registry.AllStats())))
	return registry
}

// newAggregator builds the health aggregator with its alert sinks and
// rules. The log sink is always attached; Slack is added when a webhook is
// configured. Rules come from the configured YAML file, or the built-in
// defaults when none is set.
func newAggregator(logger *slog.Logger, cfg *monitor.Config) *health.Aggregator {
	sinks := []health.Sink{alertsink.NewLogSink(logger)}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, alertsink.NewSlackSink(alertsink.SlackConfig{
			WebhookURL: cfg.SlackWebhookURL,
		}))
		logger.Info("slack alert sink enabled")
	}

	aggregator := health.NewAggregator(health.AggregatorConfig{
		Debounce: cfg.AlertDebounce,
		Sinks:    sinks,
	})

	rules := monitor.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := monitor.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			logger.Error("failed to load alert rules, using defaults",
				slog.String("path", cfg.RulesFile), slog.Any("error", err))
		} else {
			rules = loaded
			logger.Info("alert rules loaded",
				slog.String("path", cfg.RulesFile), slog.Int("count", len(loaded)))
		}
	}

	for _, rule := range rules {
		if err := aggregator.AddRule(rule); err != nil {
			logger.Warn("skipping invalid alert rule",
				slog.String("rule", rule.ID), slog.Any("error", err))
		}
	}

	return aggregator
}

// setupProviders wires the LLM failover chain and registers it as the
// recovery fallback for the primary provider: when Anthropic fails, the
// planner's fallback hook verifies the chain can still complete through
// OpenAI.
func setupProviders(logger *slog.Logger, registry *circuit.Registry, planner *recovery.Planner) {
	var completers []provider.Completer

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		completers = append(completers, provider.NewAnthropicCompleter(key))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		completers = append(completers, provider.NewOpenAICompleter(key))
	}

	if len(completers) == 0 {
		logger.Info("no LLM providers configured, completion failover disabled")
		return
	}

	chain := provider.NewChain(registry, completers...)
	logger.Info("completion failover chain initialized", slog.Int("providers", len(completers)))

	for _, completer := range completers {
		planner.RegisterFallbackHook(completer.Name(), func(ctx context.Context) error {
			_, err := chain.Complete(ctx, "Reply with the single word: ok")
			return err
		})
	}
}

// setupProbers attaches a synthetic prober for each dependency that is
// configured, and returns a cleanup closing any connections it opened.
func setupProbers(logger *slog.Logger, cfg *monitor.Config, aggregator *health.Aggregator) func() {
	var closers []func()

	if cfg.DatabaseURL != "" {
		pool, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database pool, postgres probe disabled", slog.Any("error", err))
		} else {
			aggregator.RegisterProber(probe.NewPostgresProber(pool, "postgres"))
			closers = append(closers, func() {
				if err := pool.Close(); err != nil {
					logger.Error("failed to close database pool", slog.Any("error", err))
				}
			})
			logger.Info("postgres prober registered")
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		aggregator.RegisterProber(probe.NewRedisProber(client, "redis"))
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", slog.Any("error", err))
			}
		})
		logger.Info("redis prober registered", slog.String("addr", cfg.RedisAddr))
	}

	if cfg.TranscriptionStatusURL != "" {
		aggregator.RegisterProber(probe.NewHTTPProber(nil, cfg.TranscriptionStatusURL, "transcription"))
		logger.Info("transcription prober registered", slog.String("url", cfg.TranscriptionStatusURL))
	}

	return func() {
		for _, close := range closers {
			close()
		}
	}
}
