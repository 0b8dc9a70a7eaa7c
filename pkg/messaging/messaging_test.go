package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type failingBroker struct {
	calls int
}

func (f *failingBroker) Name() string { return "failing" }
func (f *failingBroker) Publish(ctx context.Context, msg *Message) error {
	f.calls++
	return errors.New("connection refused")
}
func (f *failingBroker) Subscribe(ctx context.Context, topic string, h Handler) error { return nil }
func (f *failingBroker) Close() error                                                  { return nil }

func message(topic string) *Message {
	return &Message{
		ID:         uuid.New(),
		Topic:      topic,
		ClinicID:   uuid.New(),
		Payload:    json.RawMessage(`{"doctor_id":"x"}`),
		OccurredAt: time.Now().UTC(),
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := message("appointment.booked")
	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.JSONEq(t, string(msg.Payload), string(got.Payload))
}

func TestMemoryBrokerDeliversByTopic(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	var got []string
	require.NoError(t, b.Subscribe(ctx, "doctor.upserted", func(ctx context.Context, m *Message) error {
		got = append(got, m.Topic)
		return nil
	}))

	require.NoError(t, b.Publish(ctx, message("doctor.upserted")))
	require.NoError(t, b.Publish(ctx, message("doctor.deleted")))
	assert.Equal(t, []string{"doctor.upserted"}, got)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &failingBroker{}
	m := metrics.New("test", prometheus.NewRegistry())
	b := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Hour}, m, zerolog.Nop())

	ctx := context.Background()
	assert.Error(t, b.Publish(ctx, message("x")))
	assert.Error(t, b.Publish(ctx, message("x")))
	assert.ErrorIs(t, b.Publish(ctx, message("x")), gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BrokerPublishes.WithLabelValues("failing", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerPublishes.WithLabelValues("failing", "rejected")))
}
