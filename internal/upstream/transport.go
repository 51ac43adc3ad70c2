// Package upstream wraps outbound HTTP clients with a per-upstream circuit
// breaker, latency metrics and logging.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"weatherbot/internal/metrics"
)

var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	errServerStatus = errors.New("upstream server error")
)

// BreakerConfig configures the breaker in front of one upstream
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32        // consecutive failures before opening
	OpenTimeout      time.Duration // time spent open before probing again
	HalfOpenRequests uint32        // probes allowed while half-open
}

// Transport is an http.RoundTripper guarded by a circuit breaker
type Transport struct {
	name    string
	base    http.RoundTripper
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewTransport wraps base. A nil base uses http.DefaultTransport; nil metrics
// disables instrumentation.
func NewTransport(name string, base http.RoundTripper, cfg BreakerConfig, m *metrics.Metrics, log *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}

	t := &Transport{
		name:    name,
		base:    base,
		metrics: m,
		log:     log.With(zap.String("upstream", name)),
	}

	if cfg.Enabled {
		threshold := cfg.FailureThreshold
		if threshold == 0 {
			threshold = 5
		}
		probes := cfg.HalfOpenRequests
		if probes == 0 {
			probes = 1
		}
		timeout := cfg.OpenTimeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: probes,
			Interval:    time.Minute,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				t.log.Warn("Circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				if t.metrics != nil {
					t.metrics.BreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
	}

	return t
}

// NewClient returns an *http.Client using a guarded transport.
func NewClient(name string, timeout time.Duration, cfg BreakerConfig, m *metrics.Metrics, log *zap.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(name, nil, cfg, m, log),
	}
}

// RoundTrip sends the request unless the breaker is open. Transport errors and
// 5xx responses count as failures; 5xx responses are still returned to the caller.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if t.breaker == nil {
		resp, err := t.base.RoundTrip(req)
		t.observe(start, resp, err)
		return resp, err
	}

	out, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if t.metrics != nil {
			t.metrics.UpstreamRequests.WithLabelValues(t.name, "rejected").Inc()
		}
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}

	resp, _ := out.(*http.Response)
	if errors.Is(err, errServerStatus) {
		err = nil
	}
	t.observe(start, resp, err)
	return resp, err
}

// State reports the breaker state, closed when no breaker is configured.
func (t *Transport) State() gobreaker.State {
	if t.breaker == nil {
		return gobreaker.StateClosed
	}
	return t.breaker.State()
}

func (t *Transport) observe(start time.Time, resp *http.Response, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "transport_error"
		t.log.Debug("upstream request failed", zap.Error(err))
	case resp != nil && resp.StatusCode >= http.StatusInternalServerError:
		result = "server_error"
	case resp != nil && resp.StatusCode >= http.StatusBadRequest:
		result = "client_error"
	}

	if t.metrics == nil {
		return
	}
	t.metrics.UpstreamRequests.WithLabelValues(t.name, result).Inc()
	t.metrics.UpstreamLatency.WithLabelValues(t.name).Observe(time.Since(start).Seconds())
}
