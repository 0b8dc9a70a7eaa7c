// Package bootstrap builds the shared dependencies of the binaries from the
// loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/notification"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/amqp"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/money"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

// Logger builds the application logger and installs it as the global
// zerolog logger used by the HTTP middleware.
func Logger(cfg config.LoggingConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Format: cfg.Format,
		Output: os.Stdout,
	})
	log.Logger = l.Zerolog()
	return l
}

// Storage is the opened persistence layer. DB is nil for the memory driver.
type Storage struct {
	Repos *repository.Repositories
	DB    *sqlx.DB
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStorage connects to Postgres, or builds an empty in-process store for
// the memory driver.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	if cfg.Driver == "memory" {
		return &Storage{Repos: memory.NewStore().Repositories()}, nil
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{Repos: postgres.NewRepositories(db), DB: db}, nil
}

// Broker connects the configured message broker and wraps it in a circuit
// breaker. "none" delivers in process.
func Broker(ctx context.Context, cfg config.MessagingConfig, m *metrics.Metrics, l *logger.Logger) (messaging.Broker, error) {
	var (
		b   messaging.Broker
		err error
	)
	switch cfg.Broker {
	case "redis":
		b, err = redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.RedisURL,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     cfg.PoolSize,
		}, l.Zerolog())
	case "amqp":
		b, err = amqp.NewBroker(amqp.Config{URL: cfg.AMQPURL, Exchange: cfg.Exchange}, l.Zerolog())
	case "none", "":
		return messaging.NewMemoryBroker(), nil
	default:
		return nil, fmt.Errorf("unsupported message broker %q", cfg.Broker)
	}
	if err != nil {
		return nil, err
	}

	return messaging.WithBreaker(b, messaging.BreakerSettings{
		ConsecutiveFailures: uint32(cfg.BreakerFailures),
		OpenTimeout:         cfg.BreakerTimeout,
	}, m, l.Zerolog()), nil
}

// Location is the zone used for clinics that have none configured.
func Location(cfg config.SchedulingConfig) *time.Location {
	return availability.ResolveLocation(cfg.DefaultTimezone, time.UTC)
}

func MoneyFormat(cfg config.SchedulingConfig) money.Format {
	return money.Format{
		Symbol:    cfg.CurrencySymbol,
		Thousands: cfg.ThousandsSeparator,
		Decimal:   cfg.DecimalSeparator,
	}
}

// StartOutbox subscribes the notifier (when mail is enabled) and runs the
// outbox relay and its retention cleanup until ctx is done. The returned
// channel is closed once both loops have stopped.
func StartOutbox(ctx context.Context, cfg *config.Config, repos *repository.Repositories,
	broker messaging.Broker, m *metrics.Metrics, l *logger.Logger) (<-chan struct{}, error) {
	if cfg.Mail.Enabled {
		sender := notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		notifier := notification.NewNotifier(sender, cfg.Scheduling.Locale, l, m)
		if err := notifier.Subscribe(ctx, broker); err != nil {
			return nil, fmt.Errorf("failed to subscribe notifier: %w", err)
		}
	}

	processor := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.MaxRetries,
		RetryDelay:    cfg.Outbox.RetryBackoff,
	}, l, m)
	cleanup := worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, time.Hour, l)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done, nil
}
