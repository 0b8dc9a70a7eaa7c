package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"

	_ "time/tzdata"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func bookedMessage(t *testing.T, evt model.AppointmentEvent) *messaging.Message {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return &messaging.Message{
		ID:         uuid.New(),
		Topic:      model.EventAppointmentBooked,
		ClinicID:   evt.ClinicID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

func sampleEvent() model.AppointmentEvent {
	return model.AppointmentEvent{
		AppointmentID:   uuid.New(),
		ClinicID:        uuid.New(),
		ClinicName:      "Centro",
		Timezone:        "America/Sao_Paulo",
		DoctorName:      "Dr. Ana",
		PatientName:     "Bruno",
		PatientEmail:    "bruno@example.com",
		Date:            time.Date(2024, 5, 22, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
}

func TestHandleBookedSendsConfirmationInClinicZone(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.New("test", prometheus.NewRegistry())
	n := NewNotifier(sender, "pt-BR", logger.Nop(), m)

	broker := messaging.NewMemoryBroker()
	require.NoError(t, n.Subscribe(context.Background(), broker))
	require.NoError(t, broker.Publish(context.Background(), bookedMessage(t, sampleEvent())))

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "bruno@example.com", mail.to)
	assert.Equal(t, confirmationSubject, mail.subject)
	assert.Contains(t, mail.body, "Dr. Ana")
	assert.Contains(t, mail.body, "quarta-feira")
	assert.Contains(t, mail.body, "2024-05-22 09:00")
	assert.Contains(t, mail.body, "America/Sao_Paulo")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsSent.WithLabelValues("sent")))
}

func TestHandleBookedSkipsMissingEmail(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, "en", logger.Nop(), nil)

	evt := sampleEvent()
	evt.PatientEmail = ""
	require.NoError(t, n.HandleBooked(context.Background(), bookedMessage(t, evt)))
	assert.Empty(t, sender.sent)
}

func TestHandleBookedReportsFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	m := metrics.New("test", prometheus.NewRegistry())
	n := NewNotifier(sender, "en", logger.Nop(), m)

	err := n.HandleBooked(context.Background(), bookedMessage(t, sampleEvent()))
	assert.ErrorContains(t, err, "relay down")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsSent.WithLabelValues("error")))

	bad := &messaging.Message{Topic: model.EventAppointmentBooked, Payload: json.RawMessage(`"nope"`)}
	assert.Error(t, n.HandleBooked(context.Background(), bad))
}
