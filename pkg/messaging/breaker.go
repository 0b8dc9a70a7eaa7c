package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// BreakerSettings tunes the circuit breaker around Publish.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

type breakerBroker struct {
	Broker
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// WithBreaker guards b.Publish with a circuit breaker and counts publishes
// per outcome. m may be nil.
func WithBreaker(b Broker, settings BreakerSettings, m *metrics.Metrics, logger zerolog.Logger) Broker {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        b.Name() + "-broker",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return &breakerBroker{Broker: b, cb: cb, metrics: m}
}

func (b *breakerBroker) Publish(ctx context.Context, msg *Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Broker.Publish(ctx, msg)
	})

	if b.metrics != nil {
		status := "ok"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = "rejected"
		case err != nil:
			status = "error"
		}
		b.metrics.BrokerPublishes.WithLabelValues(b.Broker.Name(), status).Inc()
	}
	return err
}
