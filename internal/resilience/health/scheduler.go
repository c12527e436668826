package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"meetscribe/internal/observability/metrics"
)

// probeTimeout bounds a single synthetic probe so one hung dependency
// cannot stall the whole sweep.
const probeTimeout = 10 * time.Second

// RegisterProber adds a synthetic probe to the background sweep.
// Probers must be registered before Start.
func (a *Aggregator) RegisterProber(p Prober) {
	a.mu.Lock()
	a.probers = append(a.probers, p)
	a.mu.Unlock()
}

// Start launches the background scheduler: a health sweep over every
// registered probe each minute and an error-counter reset each hour.
// Stop shuts the scheduler down cleanly without leaking timers.
func (a *Aggregator) Start() error {
	a.mu.Lock()
	if a.cron != nil {
		a.mu.Unlock()
		return fmt.Errorf("health scheduler already started")
	}
	c := cron.New()
	a.cron = c
	a.mu.Unlock()

	if _, err := c.AddFunc("@every 1m", a.Sweep); err != nil {
		return fmt.Errorf("schedule health sweep: %w", err)
	}
	if _, err := c.AddFunc("@every 1h", a.ResetErrorCounters); err != nil {
		return fmt.Errorf("schedule error counter reset: %w", err)
	}

	c.Start()
	slog.Info("health scheduler started",
		slog.String("sweep_interval", "1m"),
		slog.String("counter_reset_interval", "1h"))
	return nil
}

// Stop halts the background scheduler and waits for any running sweep to
// finish. Safe to call when Start was never called.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	slog.Info("health scheduler stopped")
}

// Sweep runs every registered probe once, feeding results into the same
// aggregator state as live traffic reports. Exported so operators (and
// tests) can trigger an immediate sweep.
func (a *Aggregator) Sweep() {
	a.mu.Lock()
	probers := make([]Prober, len(a.probers))
	copy(probers, a.probers)
	a.mu.Unlock()

	for _, p := range probers {
		a.runProbe(p)
	}
}

func (a *Aggregator) runProbe(p Prober) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	service := p.Service()
	start := a.clock.Now()
	err := p.Probe(ctx)
	elapsed := a.clock.Now().Sub(start)

	metrics.RecordProbe(service, elapsed, err)
	a.RecordResponseTime(service, elapsed)
	if err != nil {
		a.RecordError(service)
		slog.Warn("health probe failed",
			slog.String("service", service),
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		return
	}
	slog.Debug("health probe ok",
		slog.String("service", service),
		slog.Duration("duration", elapsed))
}
