package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `id, clinic_id, patient_id, doctor_id, date, duration_minutes, created_at, updated_at`

const appointmentDetailSelect = `
	SELECT
		a.id, a.clinic_id, a.patient_id, a.doctor_id, a.date, a.duration_minutes,
		a.created_at, a.updated_at,
		p.name AS patient_name, p.email AS patient_email,
		d.name AS doctor_name, d.specialty AS doctor_specialty,
		d.appointment_price_in_cents
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Book(ctx context.Context, apt *model.Appointment, dayStart, dayEnd time.Time, check repository.BookingCheck) error {
	apt.Touch(time.Now().UTC())

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Row lock on the doctor serializes bookings for the same agenda.
		var doctor model.Doctor
		lockDoctor := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1 AND clinic_id = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &doctor, lockDoctor, apt.DoctorID, apt.ClinicID); err != nil {
			return fmt.Errorf("failed to lock doctor: %w", mapError(err))
		}

		var patient model.Patient
		getPatient := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND clinic_id = $2`
		if err := tx.GetContext(ctx, &patient, getPatient, apt.PatientID, apt.ClinicID); err != nil {
			return fmt.Errorf("failed to get patient: %w", mapError(err))
		}

		var clinic model.Clinic
		getClinic := `SELECT id, name, timezone, created_at, updated_at FROM clinics WHERE id = $1`
		if err := tx.GetContext(ctx, &clinic, getClinic, apt.ClinicID); err != nil {
			return fmt.Errorf("failed to get clinic: %w", mapError(err))
		}

		booked, err := listForDoctor(ctx, tx, apt.ClinicID, apt.DoctorID, dayStart, dayEnd)
		if err != nil {
			return err
		}

		evt, err := check(&repository.Booking{
			Clinic:  &clinic,
			Doctor:  &doctor,
			Patient: &patient,
			Booked:  booked,
		})
		if err != nil {
			return err
		}

		insert := `
			INSERT INTO appointments (` + appointmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, insert,
			apt.ID,
			apt.ClinicID,
			apt.PatientID,
			apt.DoctorID,
			apt.Date,
			apt.DurationMinutes,
			apt.CreatedAt,
			apt.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create appointment: %w", mapError(err))
		}

		return insertOutbox(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := appointmentDetailSelect + ` WHERE a.id = $1 AND a.clinic_id = $2`

	var detail model.AppointmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &detail, nil
}

func (r *appointmentRepository) List(ctx context.Context, clinicID uuid.UUID, filter model.AppointmentFilter) ([]*model.AppointmentDetail, error) {
	conditions := []string{"a.clinic_id = $1"}
	args := []interface{}{clinicID}

	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		conditions = append(conditions, fmt.Sprintf("a.doctor_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("a.date < $%d", len(args)))
	}

	query := appointmentDetailSelect +
		` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY a.date ASC, a.id ASC`

	details := []*model.AppointmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return details, nil
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, clinicID, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	return listForDoctor(ctx, r.db, clinicID, doctorID, from, to)
}

func listForDoctor(ctx context.Context, q sqlx.QueryerContext, clinicID, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE clinic_id = $1
		AND doctor_id = $2
		AND date < $4
		AND date + make_interval(mins => duration_minutes) > $3
		ORDER BY date ASC
	`
	appointments := []*model.Appointment{}
	if err := sqlx.SelectContext(ctx, q, &appointments, query, clinicID, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1 AND clinic_id = $2`, id, clinicID)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		if err := rowsAffected(res); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evt)
	})
}
