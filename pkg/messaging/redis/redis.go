package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

// RedisBroker publishes messages on Redis pub/sub channels named
// <prefix>.<topic>.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

type Config struct {
	URL          string
	Prefix       string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisBroker(ctx context.Context, config Config, logger zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newBroker(client, config.Prefix, logger), nil
}

func newBroker(client *redis.Client, prefix string, logger zerolog.Logger) *RedisBroker {
	if prefix == "" {
		prefix = "clinic"
	}
	return &RedisBroker{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("broker", "redis").Logger(),
	}
}

func (b *RedisBroker) Name() string { return "redis" }

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + "." + topic
}

func (b *RedisBroker) Publish(ctx context.Context, msg *messaging.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(msg.Topic), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe consumes the topic's channel in a goroutine until ctx is done.
// Handler errors are logged; pub/sub has no redelivery.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string, handler messaging.Handler) error {
	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				msg, err := messaging.Decode([]byte(raw.Payload))
				if err != nil {
					b.logger.Error().Err(err).Str("channel", raw.Channel).Msg("dropping malformed message")
					continue
				}
				if err := handler(ctx, msg); err != nil {
					b.logger.Error().Err(err).
						Str("topic", topic).
						Str("message_id", msg.ID.String()).
						Msg("failed to handle message")
				}
			}
		}
	}()
	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
