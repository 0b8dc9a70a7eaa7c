package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

// NewRepositories wires every Postgres repository onto db.
func NewRepositories(db *sqlx.DB) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Clinics:      NewClinicRepository(base),
		Users:        NewUserRepository(base),
		Doctors:      NewDoctorRepository(base),
		Patients:     NewPatientRepository(base),
		Appointments: NewAppointmentRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}
