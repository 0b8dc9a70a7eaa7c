package model

import (
	"time"

	"github.com/google/uuid"
)

type Clinic struct {
	Base
	Name     string `db:"name" json:"name"`
	Timezone string `db:"timezone" json:"timezone"`
}

// Membership links a user to a clinic they may act on.
type Membership struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateClinicRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}
