package amqp

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

// Broker publishes messages to a durable topic exchange, using the topic as
// routing key. Each subscribed topic gets a durable queue named
// <exchange>.<topic>.
type Broker struct {
	conn     *amqp.Connection
	exchange string
	logger   zerolog.Logger

	mu      sync.Mutex
	publish *amqp.Channel
}

type Config struct {
	URL      string
	Exchange string
}

func NewBroker(config Config, logger zerolog.Logger) (*Broker, error) {
	if config.Exchange == "" {
		config.Exchange = "clinic.events"
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(config.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", config.Exchange, err)
	}

	return &Broker{
		conn:     conn,
		exchange: config.Exchange,
		logger:   logger.With().Str("broker", "amqp").Logger(),
		publish:  ch,
	}, nil
}

func (b *Broker) Name() string { return "amqp" }

func (b *Broker) Publish(ctx context.Context, msg *messaging.Message) error {
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.publish.PublishWithContext(ctx, b.exchange, msg.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.OccurredAt,
		Type:         msg.Topic,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe consumes the topic's queue in a goroutine until ctx is done.
// Messages whose handler fails are requeued once, then dropped.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler messaging.Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	queue, err := ch.QueueDeclare(b.exchange+"."+topic, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, topic, b.exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to consume queue: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				b.handle(ctx, topic, d, handler)
			}
		}
	}()
	return nil
}

func (b *Broker) handle(ctx context.Context, topic string, d amqp.Delivery, handler messaging.Handler) {
	msg, err := messaging.Decode(d.Body)
	if err != nil {
		b.logger.Error().Err(err).Str("topic", topic).Msg("dropping malformed message")
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		b.logger.Error().Err(err).
			Str("topic", topic).
			Str("message_id", msg.ID.String()).
			Bool("redelivered", d.Redelivered).
			Msg("failed to handle message")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publish != nil {
		b.publish.Close()
	}
	return b.conn.Close()
}
