// Package breaker guards writes to external sinks with a circuit breaker so
// a dead results database or metrics endpoint cannot stall the race loop.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/logging"
)

// ErrOpen is returned when a call is rejected without being attempted.
var ErrOpen = errors.New("circuit open")

// Breaker wraps operations against one downstream dependency.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *logging.Logger
}

// Operation is a single guarded call.
type Operation func() error

// New creates a breaker named name. It trips after
// cfg.MaxConsecutiveFails consecutive failures and tries again after
// cfg.Timeout.
func New(name string, cfg config.BreakerConfig, log *logging.Logger) *Breaker {
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("breaker", name)

	threshold := cfg.MaxConsecutiveFails
	if threshold == 0 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info(context.Background(), "circuit breaker state changed",
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: log,
	}
}

// Execute runs op unless the circuit is open. Rejections wrap ErrOpen;
// failures of op are returned wrapped.
func (b *Breaker) Execute(ctx context.Context, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.LogWithContext(ctx, slog.LevelDebug, "call rejected", "state", b.cb.State().String())
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	b.logger.LogWithContext(ctx, slog.LevelWarn, "guarded call failed",
		"error", err,
		"state", b.cb.State().String(),
	)
	return fmt.Errorf("circuit breaker: %w", err)
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the request counters of the current generation.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
