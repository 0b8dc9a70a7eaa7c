package doctor

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/session"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func intPtr(i int) *int { return &i }

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	// Saturday noon.
	now := time.Date(2024, 5, 18, 12, 0, 0, 0, time.UTC)
	svc := NewService(store.Repositories().Doctors, validator.New(availability.TimeOfDayRule()), Options{
		Location: time.UTC,
		Locale:   "en",
		Now:      func() time.Time { return now },
	}, nil)
	return svc, store
}

func principal() *session.Principal {
	return &session.Principal{
		UserID: uuid.New(),
		Email:  "owner@example.com",
		Clinic: &session.Clinic{ID: uuid.New(), Name: "Centro"},
	}
}

func validRequest() *model.UpsertDoctorRequest {
	return &model.UpsertDoctorRequest{
		Name:                    "Dra. Helena",
		Specialty:               "Cardiologia",
		AppointmentPriceInCents: 15000,
		AvailableFromWeekday:    intPtr(1),
		AvailableToWeekday:      intPtr(5),
		AvailableFromTime:       "08:00:00",
		AvailableToTime:         "17:00:00",
	}
}

func TestValidateAcceptsOrderedWindow(t *testing.T) {
	svc, _ := newTestService(t)

	doc, err := svc.Validate(validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Dra. Helena", doc.Name)
	assert.Equal(t, 1, doc.AvailableFromWeekday)
	assert.Equal(t, availability.NewLocalTime(17, 0, 0), doc.AvailableToTime)
}

func TestValidateRejectsUnorderedTimesOnToField(t *testing.T) {
	svc, _ := newTestService(t)

	for _, pair := range [][2]string{{"17:00:00", "08:00:00"}, {"09:00:00", "09:00:00"}} {
		req := validRequest()
		req.AvailableFromTime, req.AvailableToTime = pair[0], pair[1]

		_, err := svc.Validate(req)
		require.Error(t, err)
		assert.Equal(t, map[string]string{
			"available_to_time": "end time must be later than start time",
		}, apperrors.FieldsOf(err))
	}
}

func TestValidateRejectsWeekdayOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)

	req := validRequest()
	req.AvailableToWeekday = intPtr(7)
	_, err := svc.Validate(req)
	assert.Contains(t, apperrors.FieldsOf(err), "available_to_weekday")

	req = validRequest()
	req.AvailableFromWeekday = nil
	_, err = svc.Validate(req)
	assert.Equal(t, "is required", apperrors.FieldsOf(err)["available_from_weekday"])
}

func TestValidatePriceMinimum(t *testing.T) {
	svc, _ := newTestService(t)

	req := validRequest()
	req.AppointmentPriceInCents = 0
	_, err := svc.Validate(req)
	assert.Contains(t, apperrors.FieldsOf(err), "appointment_price_in_cents")

	req.AppointmentPriceInCents = 1
	_, err = svc.Validate(req)
	assert.NoError(t, err)
}

func TestValidateRequiresNameAndSpecialty(t *testing.T) {
	svc, _ := newTestService(t)

	req := validRequest()
	req.Name = "  "
	req.Specialty = ""
	_, err := svc.Validate(req)
	fields := apperrors.FieldsOf(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "specialty")
}

func TestUpsertRequiresSessionAndClinic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, nil, validRequest())
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = svc.Upsert(ctx, &session.Principal{UserID: uuid.New()}, validRequest())
	assert.True(t, apperrors.IsTenantRequired(err))
}

func TestUpsertIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	p := principal()

	id := uuid.New()
	req := validRequest()
	req.ID = &id
	_, err := svc.Upsert(ctx, p, req)
	require.NoError(t, err)

	req.Specialty = "Pediatria"
	req.AppointmentPriceInCents = 20000
	view, err := svc.Upsert(ctx, p, req)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)

	list, err := svc.List(ctx, p)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pediatria", list[0].Specialty)
	assert.Equal(t, int64(20000), list[0].AppointmentPriceInCents)
	assert.Equal(t, "R$ 200,00", list[0].Price)

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventDoctorUpserted, events[1].EventType)
}

func TestUpsertWithoutIDCreates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := principal()

	a, err := svc.Upsert(ctx, p, validRequest())
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, p, validRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner, other := principal(), principal()

	created, err := svc.Upsert(ctx, owner, validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.ID = &created.ID
	req.Name = "Hijacked"
	_, err = svc.Upsert(ctx, other, req)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Get(ctx, other, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = svc.Delete(ctx, other, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	got, err := svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dra. Helena", got.Name)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	_, err = svc.Get(ctx, owner, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAvailabilityDisplay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := principal()

	created, err := svc.Upsert(ctx, p, validRequest())
	require.NoError(t, err)

	display, err := svc.Availability(ctx, p, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monday", display.From.Day)
	assert.Equal(t, "08:00", display.From.Time)
	assert.Equal(t, "Friday", display.To.Day)
	assert.Equal(t, "17:00", display.To.Time)
	assert.Equal(t, "UTC", display.Timezone)
}

func TestAvailabilityUsesClinicZone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := principal()
	p.Clinic.Timezone = "America/Sao_Paulo"

	created, err := svc.Upsert(ctx, p, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", created.Availability.Timezone)
	assert.Equal(t, 8, created.Availability.From.At.Hour())
}
