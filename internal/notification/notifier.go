package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const confirmationSubject = "Your appointment is confirmed"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	`<p>Hello {{.PatientName}},</p>
<p>Your appointment with {{.DoctorName}} at {{.ClinicName}} is confirmed for
{{.Day}}, {{.When}} ({{.Timezone}}), lasting {{.DurationMinutes}} minutes.</p>`))

type confirmationData struct {
	PatientName     string
	DoctorName      string
	ClinicName      string
	Day             string
	When            string
	Timezone        string
	DurationMinutes int
}

// Notifier turns appointment events into patient emails.
type Notifier struct {
	sender  Sender
	locale  string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotifier(sender Sender, locale string, log *logger.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, locale: locale, logger: log, metrics: m}
}

// Subscribe registers the notifier for booked appointments on broker.
func (n *Notifier) Subscribe(ctx context.Context, broker messaging.Broker) error {
	return broker.Subscribe(ctx, model.EventAppointmentBooked, n.HandleBooked)
}

// HandleBooked emails the patient a confirmation in the clinic's zone.
// Events without a patient email are skipped.
func (n *Notifier) HandleBooked(ctx context.Context, msg *messaging.Message) error {
	var evt model.AppointmentEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		n.observe("invalid")
		return fmt.Errorf("failed to decode appointment event: %w", err)
	}
	if evt.PatientEmail == "" {
		n.observe("skipped")
		return nil
	}

	body, err := renderConfirmation(&evt, n.locale)
	if err != nil {
		n.observe("error")
		return err
	}

	if err := n.sender.Send(ctx, evt.PatientEmail, confirmationSubject, body); err != nil {
		n.observe("error")
		return fmt.Errorf("failed to send confirmation: %w", err)
	}

	n.observe("sent")
	n.logger.WithContext(ctx).Info("Sent appointment confirmation",
		"appointment_id", evt.AppointmentID.String(),
		"clinic_id", evt.ClinicID.String())
	return nil
}

func (n *Notifier) observe(status string) {
	if n.metrics == nil {
		return
	}
	n.metrics.NotificationsSent.WithLabelValues(status).Inc()
}

func renderConfirmation(evt *model.AppointmentEvent, locale string) (string, error) {
	loc := availability.ResolveLocation(evt.Timezone, time.UTC)
	local := evt.Date.In(loc)

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, confirmationData{
		PatientName:     evt.PatientName,
		DoctorName:      evt.DoctorName,
		ClinicName:      evt.ClinicName,
		Day:             availability.DayName(local.Weekday(), locale),
		When:            local.Format("2006-01-02 15:04"),
		Timezone:        loc.String(),
		DurationMinutes: evt.DurationMinutes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render confirmation: %w", err)
	}
	return buf.String(), nil
}
