package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"meetscribe/internal/requestid"
	"meetscribe/internal/resilience/circuit"
	"meetscribe/internal/resilience/health"
)

// HealthServer serves the operational HTTP endpoints:
//   - GET /health: liveness probe, always 200
//   - GET /health/ready: readiness probe, 200 once started, 503 before
//   - GET /health/system: per-service health from the aggregator,
//     503 when the overall status is unhealthy
//   - GET /circuits: state and counters for every registered circuit
//
// It supports graceful shutdown via context cancellation.
type HealthServer struct {
	addr       string
	logger     *slog.Logger
	registry   *circuit.Registry
	aggregator *health.Aggregator
	isReady    *atomic.Bool
	server     *http.Server
}

// healthResponse is the JSON body for the liveness and readiness probes.
type healthResponse struct {
	Status string `json:"status"`
}

// circuitsResponse is the JSON body for /circuits.
type circuitsResponse struct {
	Circuits []circuit.Stats `json:"circuits"`
}

// NewHealthServer creates a health server over the given registry and
// aggregator. Call Start to begin serving.
func NewHealthServer(addr string, logger *slog.Logger, registry *circuit.Registry, aggregator *health.Aggregator) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false)

	return &HealthServer{
		addr:       addr,
		logger:     logger,
		registry:   registry,
		aggregator: aggregator,
		isReady:    isReady,
	}
}

// Start runs the server until the context is cancelled. It returns
// http.ErrServerClosed on graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/system", h.handleSystemHealth)
	mux.HandleFunc("/circuits", h.handleCircuits)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      requestid.Middleware(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

// handleSystemHealth reports aggregated health. The HTTP status mirrors the
// overall status so load balancers can act on it without parsing the body:
// unhealthy maps to 503, healthy and degraded to 200.
func (h *HealthServer) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	system := h.aggregator.SystemHealth()

	statusCode := http.StatusOK
	if system.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, statusCode, system)
}

func (h *HealthServer) handleCircuits(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, circuitsResponse{Circuits: h.registry.AllStats()})
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
