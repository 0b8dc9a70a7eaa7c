package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/availability"
)

type Appointment struct {
	Base
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date            time.Time `db:"date" json:"date"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
}

func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a *Appointment) End() time.Time {
	return a.Date.Add(a.Duration())
}

// Interval is the span the appointment occupies on the doctor's agenda.
func (a *Appointment) Interval() availability.Interval {
	return availability.Interval{Start: a.Date, End: a.End()}
}

// AppointmentDetail is an appointment joined with its doctor and patient.
type AppointmentDetail struct {
	Appointment
	PatientName             string `db:"patient_name" json:"patient_name"`
	PatientEmail            string `db:"patient_email" json:"patient_email"`
	DoctorName              string `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty         string `db:"doctor_specialty" json:"doctor_specialty"`
	AppointmentPriceInCents int64  `db:"appointment_price_in_cents" json:"appointment_price_in_cents"`
	Price                   string `db:"-" json:"appointment_price"`
}

// BookAppointmentRequest carries Date either as RFC 3339 or as clinic wall
// time ("2006-01-02T15:04:05").
type BookAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	Date            string    `json:"date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
}

type AppointmentFilter struct {
	DoctorID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// CheckResult is the answer to a dry-run booking.
type CheckResult struct {
	availability.Decision
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
