// Package circuitbreaker wraps sony/gobreaker behind a small
// context-aware API. Used to fence off the external quote feed: when
// the provider degrades, trades fail fast on the breaker instead of
// piling up on provider timeouts.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// State mirrors gobreaker's state so callers don't import it directly
type State gobreaker.State

func (s State) String() string {
	return gobreaker.State(s).String()
}

const (
	StateClosed   State = State(gobreaker.StateClosed)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
	StateOpen     State = State(gobreaker.StateOpen)
)

// Config holds breaker tuning. Zero values fall back to defaults
// sized for a low-volume upstream like a market data feed: trip after
// five consecutive failures, stay open for 30 seconds, then let a
// single probe request through.
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	OnStateChange    func(from, to State)
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			cfg.OnStateChange(State(from), State(to))
		}
	}
	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. A context already cancelled
// when the slot opens counts as a failure without invoking fn.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fn()
	})
	return err
}

// State returns the breaker's current state
func (c *CircuitBreaker) State() State {
	return State(c.cb.State())
}
