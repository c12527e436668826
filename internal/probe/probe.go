// Package probe implements the synthetic health checks swept by the health
// aggregator's background scheduler. Each prober answers one question:
// can this dependency serve a trivial request right now? Results are
// reported under a logical service name.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"meetscribe/internal/resilience/apperr"
)

// PostgresProber checks the primary datastore by pinging the connection
// pool.
type PostgresProber struct {
	db      *sql.DB
	service string
}

// NewPostgresProber creates a prober over an open *sql.DB (pgx stdlib
// driver) reporting under the given service name.
func NewPostgresProber(db *sql.DB, service string) *PostgresProber {
	return &PostgresProber{db: db, service: service}
}

// Service implements health.Prober.
func (p *PostgresProber) Service() string { return p.service }

// Probe implements health.Prober.
func (p *PostgresProber) Probe(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.KindDatabaseConnectionFailed, "postgres ping failed", err).
			WithService(p.service).WithOperation("probe")
	}
	return nil
}

// RedisProber checks the cache with a PING command.
type RedisProber struct {
	client  *redis.Client
	service string
}

// NewRedisProber creates a prober over a redis client reporting under the
// given service name.
func NewRedisProber(client *redis.Client, service string) *RedisProber {
	return &RedisProber{client: client, service: service}
}

// Service implements health.Prober.
func (p *RedisProber) Service() string { return p.service }

// Probe implements health.Prober.
func (p *RedisProber) Probe(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return apperr.Wrap(apperr.KindCacheConnectionFailed, "redis ping failed", err).
			WithService(p.service).WithOperation("probe")
	}
	return nil
}

// HTTPProber checks an HTTP-shaped dependency (a provider status endpoint)
// with a GET request. Any 2xx response counts as healthy.
type HTTPProber struct {
	client  *http.Client
	url     string
	service string
}

// NewHTTPProber creates a prober hitting the given URL, reporting under the
// given service name. A nil client uses http.DefaultClient.
func NewHTTPProber(client *http.Client, url, service string) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client, url: url, service: service}
}

// Service implements health.Prober.
func (p *HTTPProber) Service() string { return p.service }

// Probe implements health.Prober.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetworkUnreachable, "probe request failed", err).
			WithService(p.service).WithOperation("probe")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.HTTPError{StatusCode: resp.StatusCode, Message: "probe endpoint unhealthy"}
	}
	return nil
}
