package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_client_circuit_breaker_state",
		Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
	},
	[]string{"upstream"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

// APIError is returned when an upstream answers with a non-success status.
type APIError struct {
	Upstream   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status: %d", e.Upstream, e.StatusCode)
}

// HTTPExecutorConfig configures retries and the optional circuit breaker for
// one upstream.
type HTTPExecutorConfig struct {
	// Name labels logs and the breaker state gauge.
	Name string

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// ShouldRetry decides whether a response or error is retried.
	ShouldRetry func(resp *http.Response, err error) bool

	// BreakerFailures failures within BreakerWindow executions open the breaker.
	// Zero disables the breaker.
	BreakerFailures uint
	BreakerWindow   uint
	BreakerDelay    time.Duration

	Logger logging.Logger
}

// DefaultHTTPExecutorConfig returns three retries with backoff and a breaker
// that opens after 5 failures in 10 calls.
func DefaultHTTPExecutorConfig(name string) HTTPExecutorConfig {
	return HTTPExecutorConfig{
		Name:            name,
		MaxRetries:      3,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		ShouldRetry:     DefaultShouldRetry,
		BreakerFailures: 5,
		BreakerWindow:   10,
		BreakerDelay:    15 * time.Second,
	}
}

// DefaultShouldRetry retries network errors, 5xx gateway-ish statuses and 429.
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func normalize(cfg HTTPExecutorConfig) HTTPExecutorConfig {
	if cfg.Name == "" {
		cfg.Name = "upstream"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	if cfg.BreakerWindow < cfg.BreakerFailures {
		cfg.BreakerWindow = cfg.BreakerFailures
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 15 * time.Second
	}
	return cfg
}

// NewHTTPRetryPolicy builds the retry policy alone.
//
//nolint:bodyclose // [*http.Response] is a type parameter here, not a live response
func NewHTTPRetryPolicy(cfg HTTPExecutorConfig) retrypolicy.RetryPolicy[*http.Response] {
	cfg = normalize(cfg)
	return retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(cfg.ShouldRetry).
		Build()
}

// NewHTTPExecutor combines the retry policy with the breaker, when enabled.
// The breaker sits inside the retries so every attempt is counted.
//
//nolint:bodyclose // [*http.Response] is a type parameter here, not a live response
func NewHTTPExecutor(cfg HTTPExecutorConfig) failsafe.Executor[*http.Response] {
	cfg = normalize(cfg)
	retry := NewHTTPRetryPolicy(cfg)
	if cfg.BreakerFailures == 0 {
		return failsafe.With(retry)
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(cfg.BreakerFailures, cfg.BreakerWindow).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode >= 500)
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			breakerState.WithLabelValues(cfg.Name).Set(stateValue(event.NewState))
			if cfg.Logger != nil {
				cfg.Logger.WithFields(logging.Fields{
					"upstream":   cfg.Name,
					"from_state": stateName(event.OldState),
					"to_state":   stateName(event.NewState),
				}).Warn("circuit breaker state change")
			}
		}).
		Build()

	return failsafe.With(retry, breaker)
}

func stateValue(s circuitbreaker.State) float64 {
	switch s {
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return 0
	}
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "closed"
	}
}

// ExecuteHTTP runs fn through the executor, bound to ctx.
func ExecuteHTTP(ctx context.Context, executor failsafe.Executor[*http.Response], fn func() (*http.Response, error)) (*http.Response, error) {
	return executor.WithContext(ctx).Get(fn)
}
