package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// PoolConfig sizes the shared transport and bounds concurrent requests
type PoolConfig struct {
	MaxIdle        int           `yaml:"max_idle"`
	MaxActive      int           `yaml:"max_active"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ConnectionPool shares one keep-alive transport across callers, caps the
// number of in-flight requests and routes every call through a circuit
// breaker.
type ConnectionPool struct {
	config         PoolConfig
	client         *http.Client
	transport      *http.Transport
	circuitBreaker *CircuitBreaker
	slots          chan struct{}

	active    atomic.Int64
	requests  atomic.Int64
	failures  atomic.Int64
	exhausted atomic.Int64
}

// NewConnectionPool creates a new connection pool with circuit breaker
func NewConnectionPool(config PoolConfig, cb *CircuitBreaker) *ConnectionPool {
	if config.MaxIdle <= 0 {
		config.MaxIdle = 10
	}
	if config.MaxActive <= 0 {
		config.MaxActive = 20
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 90 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if cb == nil {
		cb = NewCircuitBreaker(CircuitBreakerConfig{})
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdle,
		MaxIdleConnsPerHost:   config.MaxIdle,
		MaxConnsPerHost:       config.MaxActive,
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		config:         config,
		transport:      transport,
		client:         &http.Client{Transport: transport, Timeout: config.RequestTimeout},
		circuitBreaker: cb,
		slots:          make(chan struct{}, config.MaxActive),
	}
}

// acquire waits for a free request slot or for ctx to end
func (cp *ConnectionPool) acquire(ctx context.Context) error {
	select {
	case cp.slots <- struct{}{}:
		cp.active.Add(1)
		return nil
	default:
	}

	cp.exhausted.Add(1)
	select {
	case cp.slots <- struct{}{}:
		cp.active.Add(1)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection pool exhausted: %w", ctx.Err())
	}
}

func (cp *ConnectionPool) release() {
	cp.active.Add(-1)
	<-cp.slots
}

// DoRequest executes an HTTP request with circuit breaker protection. A 5xx
// response counts as a breaker failure but is still returned to the caller.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	if err := cp.acquire(ctx); err != nil {
		return nil, err
	}
	defer cp.release()

	var resp *http.Response
	err := cp.circuitBreaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		cp.requests.Add(1)
		start := time.Now()
		resp, err = cp.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			cp.failures.Add(1)
			slog.Warn("Request failed", "host", req.URL.Host, "path", req.URL.Path, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "host", req.URL.Host, "path", req.URL.Path, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())
		if resp.StatusCode >= http.StatusInternalServerError {
			cp.failures.Add(1)
			return NewHTTPError(resp.StatusCode, resp.Status)
		}
		return nil
	})

	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && resp != nil {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// CircuitBreaker exposes the breaker guarding this pool
func (cp *ConnectionPool) CircuitBreaker() *CircuitBreaker {
	return cp.circuitBreaker
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"active_requests":       cp.active.Load(),
		"total_requests":        cp.requests.Load(),
		"failed_requests":       cp.failures.Load(),
		"exhausted_waits":       cp.exhausted.Load(),
		"max_idle":              cp.config.MaxIdle,
		"max_active":            cp.config.MaxActive,
		"idle_timeout_ms":       cp.config.IdleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State().String(),
	}
}

// Close releases idle keep-alive connections
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
