package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

var errServerStatus = errors.New("server error status")

// ConnectionPool is a shared HTTP client with a bounded number of in-flight
// requests, guarded by a circuit breaker.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker
	transport      *http.Transport
	client         *http.Client
	slots          chan struct{}

	inFlight atomic.Int64
	total    atomic.Int64
	failed   atomic.Int64
}

// NewConnectionPool creates a new connection pool with circuit breaker
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	if maxActive <= 0 {
		maxActive = 1
	}
	if cb == nil {
		cb = NewCircuitBreaker(CircuitBreakerConfig{})
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:        maxIdle,
		maxActive:      maxActive,
		idleTimeout:    idleTimeout,
		circuitBreaker: cb,
		transport:      transport,
		client:         &http.Client{Transport: transport, Timeout: 30 * time.Second},
		slots:          make(chan struct{}, maxActive),
	}
}

// CircuitBreaker returns the breaker guarding the pool.
func (cp *ConnectionPool) CircuitBreaker() *CircuitBreaker {
	return cp.circuitBreaker
}

func (cp *ConnectionPool) acquire(ctx context.Context) error {
	select {
	case cp.slots <- struct{}{}:
		cp.inFlight.Add(1)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for a connection slot: %w", ctx.Err())
	}
}

func (cp *ConnectionPool) release() {
	cp.inFlight.Add(-1)
	<-cp.slots
}

// DoRequest executes an HTTP request with circuit breaker protection and a
// bounded number of concurrent requests. Transport errors and 5xx responses
// count against the breaker; a 5xx response is still returned to the caller.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	var resp *http.Response

	err := cp.circuitBreaker.Call(func() error {
		if err := cp.acquire(ctx); err != nil {
			return err
		}
		defer cp.release()

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		cp.total.Add(1)
		start := time.Now()
		resp, err = cp.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			cp.failed.Add(1)
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())

		if resp.StatusCode >= http.StatusInternalServerError {
			cp.failed.Add(1)
			return errServerStatus
		}
		return nil
	})

	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"in_flight":             cp.inFlight.Load(),
		"total_requests":        cp.total.Load(),
		"failed_requests":       cp.failed.Load(),
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State().String(),
	}
}

// DrainAndClose discards the rest of a response body so the connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// Close closes all idle connections in the pool
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
