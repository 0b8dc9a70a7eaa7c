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

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) CreateWithMember(ctx context.Context, clinic *model.Clinic, userID uuid.UUID) error {
	clinic.Touch(time.Now().UTC())

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO clinics (id, name, timezone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query,
			clinic.ID,
			clinic.Name,
			clinic.Timezone,
			clinic.CreatedAt,
			clinic.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create clinic: %w", mapError(err))
		}

		membership := `
			INSERT INTO user_clinic_memberships (user_id, clinic_id, created_at)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, membership, userID, clinic.ID, clinic.CreatedAt); err != nil {
			return fmt.Errorf("failed to create clinic membership: %w", mapError(err))
		}
		return nil
	})
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM clinics
		WHERE id = $1
	`
	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", mapError(err))
	}
	return &clinic, nil
}
