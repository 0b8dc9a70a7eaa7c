package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const doctorColumns = `
	id, clinic_id, name, specialty, avatar_image_url, appointment_price_in_cents,
	available_from_weekday, available_to_weekday, available_from_time, available_to_time,
	created_at, updated_at`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Upsert(ctx context.Context, doctor *model.Doctor, evt *model.OutboxEvent) error {
	doctor.Touch(time.Now().UTC())

	// The WHERE clause turns an id owned by another clinic into "no row".
	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialty = EXCLUDED.specialty,
			avatar_image_url = EXCLUDED.avatar_image_url,
			appointment_price_in_cents = EXCLUDED.appointment_price_in_cents,
			available_from_weekday = EXCLUDED.available_from_weekday,
			available_to_weekday = EXCLUDED.available_to_weekday,
			available_from_time = EXCLUDED.available_from_time,
			available_to_time = EXCLUDED.available_to_time,
			updated_at = EXCLUDED.updated_at
		WHERE doctors.clinic_id = EXCLUDED.clinic_id
		RETURNING created_at
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var createdAt time.Time
		err := tx.QueryRowxContext(ctx, query,
			doctor.ID,
			doctor.ClinicID,
			doctor.Name,
			doctor.Specialty,
			doctor.AvatarImageURL,
			doctor.AppointmentPriceInCents,
			doctor.AvailableFromWeekday,
			doctor.AvailableToWeekday,
			doctor.AvailableFromTime,
			doctor.AvailableToTime,
			doctor.CreatedAt,
			doctor.UpdatedAt,
		).Scan(&createdAt)
		if err != nil {
			return fmt.Errorf("failed to upsert doctor: %w", mapError(err))
		}
		doctor.CreatedAt = createdAt
		return insertOutbox(ctx, tx, evt)
	})
}

func (r *doctorRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1 AND clinic_id = $2`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", mapError(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE clinic_id = $1 ORDER BY name ASC, id ASC`

	doctors := []*model.Doctor{}
	if err := r.db.SelectContext(ctx, &doctors, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1 AND clinic_id = $2`, id, clinicID)
		if err != nil {
			return fmt.Errorf("failed to delete doctor: %w", err)
		}
		if err := rowsAffected(res); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evt)
	})
}
