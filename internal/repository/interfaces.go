package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned for missing rows and for rows owned by another
	// clinic.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Booking is what a BookingCheck sees while the doctor row is locked.
type Booking struct {
	Clinic  *model.Clinic
	Doctor  *model.Doctor
	Patient *model.Patient
	// Booked holds the doctor's appointments overlapping the queried day.
	Booked []*model.Appointment
}

// BookingCheck decides inside the booking transaction whether the
// appointment may be inserted. A non-nil event is written to the outbox in
// the same transaction.
type BookingCheck func(b *Booking) (*model.OutboxEvent, error)

// All repository interfaces in one file
type (
	ClinicRepository interface {
		// CreateWithMember inserts the clinic and the user's membership atomically.
		CreateWithMember(ctx context.Context, clinic *model.Clinic, userID uuid.UUID) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		// FirstMembership returns the earliest clinic the user joined.
		FirstMembership(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
	}

	DoctorRepository interface {
		// Upsert inserts the doctor or replaces every field of the row with
		// the same id. A row with that id in another clinic yields ErrNotFound.
		Upsert(ctx context.Context, doctor *model.Doctor, evt *model.OutboxEvent) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error)
		Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error
	}

	PatientRepository interface {
		Upsert(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error)
		Delete(ctx context.Context, clinicID, id uuid.UUID) error
	}

	AppointmentRepository interface {
		// Book locks the doctor, loads the doctor's appointments between
		// dayStart and dayEnd, runs check and inserts apt in one transaction.
		// A concurrent insert of the same doctor and date yields ErrDuplicate.
		Book(ctx context.Context, apt *model.Appointment, dayStart, dayEnd time.Time, check BookingCheck) error
		Get(ctx context.Context, clinicID, id uuid.UUID) (*model.AppointmentDetail, error)
		List(ctx context.Context, clinicID uuid.UUID, filter model.AppointmentFilter) ([]*model.AppointmentDetail, error)
		// ListForDoctor returns appointments overlapping [from, to).
		ListForDoctor(ctx context.Context, clinicID, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error
	}

	OutboxRepository interface {
		// ProcessPending claims up to limit due events and hands each to fn.
		// Events fn accepts are marked processed; failures are rescheduled
		// until maxRetries, then marked failed.
		ProcessPending(ctx context.Context, limit, maxRetries int, backoff time.Duration,
			fn func(ctx context.Context, evt *model.OutboxEvent) error) (processed, failed int, err error)
		PendingCount(ctx context.Context) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles every repository the services need.
type Repositories struct {
	Clinics      ClinicRepository
	Users        UserRepository
	Doctors      DoctorRepository
	Patients     PatientRepository
	Appointments AppointmentRepository
	Outbox       OutboxRepository
}
