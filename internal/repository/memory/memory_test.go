package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func seedClinic(t *testing.T, repos *repository.Repositories) (*model.User, *model.Clinic) {
	t.Helper()
	ctx := context.Background()
	user := &model.User{Name: "Ana", Email: uuid.NewString() + "@example.com", PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, user))
	clinic := &model.Clinic{Name: "Centro"}
	require.NoError(t, repos.Clinics.CreateWithMember(ctx, clinic, user.ID))
	return user, clinic
}

func TestDoctorUpsertIsScopedToClinic(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	_, a := seedClinic(t, repos)
	_, b := seedClinic(t, repos)

	doc := &model.Doctor{ClinicID: a.ID, Name: "Dr. A"}
	require.NoError(t, repos.Doctors.Upsert(ctx, doc, nil))

	hijack := &model.Doctor{Base: model.Base{ID: doc.ID}, ClinicID: b.ID, Name: "Dr. B"}
	assert.ErrorIs(t, repos.Doctors.Upsert(ctx, hijack, nil), repository.ErrNotFound)

	_, err := repos.Doctors.Get(ctx, b.ID, doc.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repos.Doctors.Delete(ctx, b.ID, doc.ID, nil), repository.ErrNotFound)

	got, err := repos.Doctors.Get(ctx, a.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. A", got.Name)
}

func TestFirstMembershipIsEarliest(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	user, first := seedClinic(t, repos)

	second := &model.Clinic{Name: "Filial"}
	require.NoError(t, repos.Clinics.CreateWithMember(ctx, second, user.ID))

	got, err := repos.Users.FirstMembership(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestBookRejectsSameDoctorAndDate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	_, clinic := seedClinic(t, repos)

	doc := &model.Doctor{ClinicID: clinic.ID, Name: "Dr. A"}
	require.NoError(t, repos.Doctors.Upsert(ctx, doc, nil))
	pat := &model.Patient{ClinicID: clinic.ID, Name: "Bia"}
	require.NoError(t, repos.Patients.Upsert(ctx, pat))

	date := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	allow := func(b *repository.Booking) (*model.OutboxEvent, error) {
		return model.NewOutboxEvent(clinic.ID, model.EventAppointmentBooked, b.Doctor.ID)
	}

	first := &model.Appointment{ClinicID: clinic.ID, DoctorID: doc.ID, PatientID: pat.ID, Date: date, DurationMinutes: 30}
	require.NoError(t, repos.Appointments.Book(ctx, first, date, date.Add(24*time.Hour), allow))

	second := &model.Appointment{ClinicID: clinic.ID, DoctorID: doc.ID, PatientID: pat.ID, Date: date, DurationMinutes: 30}
	assert.ErrorIs(t, repos.Appointments.Book(ctx, second, date, date.Add(24*time.Hour), allow), repository.ErrDuplicate)

	assert.Len(t, store.Events(), 1)
}

func TestOutboxRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	_, clinic := seedClinic(t, repos)

	evt, err := model.NewOutboxEvent(clinic.ID, model.EventDoctorDeleted, model.DoctorEvent{ClinicID: clinic.ID})
	require.NoError(t, err)
	doc := &model.Doctor{ClinicID: clinic.ID}
	require.NoError(t, repos.Doctors.Upsert(ctx, doc, evt))

	fail := func(context.Context, *model.OutboxEvent) error { return assert.AnError }

	processed, failed, err := repos.Outbox.ProcessPending(ctx, 10, 2, 0, fail)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.OutboxStatusPending, store.Events()[0].Status)

	_, failed, err = repos.Outbox.ProcessPending(ctx, 10, 2, 0, fail)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.OutboxStatusFailed, store.Events()[0].Status)

	n, err := repos.Outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxRelayDoesNotBlockStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	_, clinic := seedClinic(t, repos)

	evt, err := model.NewOutboxEvent(clinic.ID, model.EventDoctorDeleted, model.DoctorEvent{ClinicID: clinic.ID})
	require.NoError(t, err)
	require.NoError(t, repos.Doctors.Upsert(ctx, &model.Doctor{ClinicID: clinic.ID, Name: "Dr. A"}, evt))

	publishing := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context, *model.OutboxEvent) error {
		close(publishing)
		<-release
		return nil
	}

	done := make(chan int)
	go func() {
		processed, _, _ := repos.Outbox.ProcessPending(ctx, 10, 3, 0, slow)
		done <- processed
	}()
	<-publishing

	listed := make(chan error)
	go func() {
		_, err := repos.Doctors.List(ctx, clinic.ID)
		listed <- err
	}()
	select {
	case err := <-listed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("doctor list blocked while an event was being published")
	}

	again, _, err := repos.Outbox.ProcessPending(ctx, 10, 3, 0, slow)
	require.NoError(t, err)
	assert.Zero(t, again)

	close(release)
	assert.Equal(t, 1, <-done)
	assert.Equal(t, model.OutboxStatusProcessed, store.Events()[0].Status)
}
