package infrastructure

import (
	"context"
	"time"

	"github.com/orderflow/fulfillment/shared/events"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var _ events.Publisher = (*BreakerPublisher)(nil)

// BreakerPublisher guards a Publisher with a circuit breaker. While the
// breaker is open publishing fails fast with a transient error, which sends
// the triggering event back to the bus for redelivery.
type BreakerPublisher struct {
	next events.Publisher
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPublisher(name string, next events.Publisher, logger *zap.Logger) *BreakerPublisher {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerPublisher{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, evts...)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.Unavailable(err, "event bus circuit open")
	}
	return err
}

// State exposes the breaker state for health reporting
func (p *BreakerPublisher) State() gobreaker.State {
	return p.cb.State()
}
