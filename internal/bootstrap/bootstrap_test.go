package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"

	_ "time/tzdata"
)

func TestOpenStorageMemory(t *testing.T) {
	storage, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, storage.DB)
	assert.NotNil(t, storage.Repos.Appointments)
	assert.NoError(t, storage.Close())
}

func TestBrokerNoneIsInProcess(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	b, err := Broker(context.Background(), config.MessagingConfig{Broker: "none"}, m, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &messaging.MemoryBroker{}, b)

	_, err = Broker(context.Background(), config.MessagingConfig{Broker: "kafka"}, m, logger.Nop())
	assert.Error(t, err)
}

func TestSchedulingDefaults(t *testing.T) {
	cfg := config.SchedulingConfig{
		DefaultTimezone:    "America/Sao_Paulo",
		CurrencySymbol:     "US$",
		ThousandsSeparator: ",",
		DecimalSeparator:   ".",
	}
	assert.Equal(t, "America/Sao_Paulo", Location(cfg).String())
	assert.Equal(t, "US$ 1,234.56", MoneyFormat(cfg).Cents(123456))

	cfg.DefaultTimezone = ""
	assert.Equal(t, time.UTC, Location(cfg))
}

func TestStartOutboxStopsWithContext(t *testing.T) {
	storage, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)

	cfg := &config.Config{Outbox: config.OutboxConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   3,
		Retention:    time.Hour,
	}}
	m := metrics.New("test", prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done, err := StartOutbox(ctx, cfg, storage.Repos, messaging.NewMemoryBroker(), m, logger.Nop())
	require.NoError(t, err)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("outbox loops did not stop")
	}
}
