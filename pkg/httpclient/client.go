package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/Ramsey-B/clover/pkg/metrics"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// ErrCircuitOpen is returned while the backend is considered down
var ErrCircuitOpen = errors.New("backend circuit breaker is open")

// Config holds HTTP client configuration
type Config struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	// MaxRetries applies to requests sent with DoWithRetry only
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// BreakerDelay is how long the circuit stays open; zero disables the breaker
	BreakerDelay time.Duration
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
		MaxRetries:      3,
		RetryBaseDelay:  100 * time.Millisecond,
		RetryMaxDelay:   5 * time.Second,
		BreakerDelay:    15 * time.Second,
	}
}

// Client wraps the HTTP client with logging, size limits, retries and a circuit breaker
type Client struct {
	client  *http.Client
	logger  ectologger.Logger
	retry   retrypolicy.RetryPolicy[*Response]
	breaker circuitbreaker.CircuitBreaker[*Response]
}

// NewClient creates a new HTTP client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = cfg.RetryBaseDelay
	}

	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	c := &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}

	c.retry = retrypolicy.NewBuilder[*Response]().
		WithBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, circuitbreaker.ErrOpen)
			}
			return resp == nil || IsRetryableStatus(resp.StatusCode)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[*Response]) {
			metrics.BackendRetriesTotal.WithLabelValues("GET").Inc()
			logger.WithField("attempt", e.Attempts()).Warn("retrying backend request")
		}).
		ReturnLastFailure().
		Build()

	if cfg.BreakerDelay > 0 {
		c.breaker = circuitbreaker.NewBuilder[*Response]().
			WithFailureThresholdRatio(5, 10).
			WithDelay(cfg.BreakerDelay).
			WithSuccessThreshold(1).
			HandleIf(func(resp *Response, err error) bool {
				if err != nil {
					return true
				}
				return resp != nil && resp.StatusCode >= http.StatusInternalServerError
			}).
			Build()
	}

	return c
}

// Response represents an HTTP response with its body already read
type Response struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// Do executes a single attempt
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if c.breaker == nil {
		return c.do(ctx, req)
	}

	resp, err := failsafe.With[*Response](c.breaker).WithContext(ctx).Get(func() (*Response, error) {
		return c.do(ctx, req)
	})
	return resp, mapBreakerError(err)
}

// DoWithRetry executes an idempotent request, retrying network errors, 429 and 5xx.
// newRequest is called once per attempt so bodies are never reused.
func (c *Client) DoWithRetry(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	policies := []failsafe.Policy[*Response]{c.retry}
	if c.breaker != nil {
		policies = append(policies, c.breaker)
	}

	resp, err := failsafe.With[*Response](policies...).WithContext(ctx).Get(func() (*Response, error) {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}
		return c.do(ctx, req)
	})
	return resp, mapBreakerError(err)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := c.client.Do(req.WithContext(ctx))
	duration := time.Since(start)
	metrics.BackendRequestDuration.WithLabelValues(req.Method).Observe(duration.Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", req.Method, req.URL.String())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes (max %d)", resp.ContentLength, MaxResponseSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", req.Method, req.URL.String(), resp.StatusCode, duration)

	return &Response{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Duration:    duration,
	}, nil
}

func mapBreakerError(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrCircuitOpen
	}
	return err
}

// IsSuccessStatus reports a 2xx status
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// IsRetryableStatus reports statuses worth retrying for idempotent requests
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
