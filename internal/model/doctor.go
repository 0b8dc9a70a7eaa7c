package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/availability"
)

type Doctor struct {
	Base
	ClinicID                uuid.UUID              `db:"clinic_id" json:"clinic_id"`
	Name                    string                 `db:"name" json:"name"`
	Specialty               string                 `db:"specialty" json:"specialty"`
	AvatarImageURL          string                 `db:"avatar_image_url" json:"avatar_image_url"`
	AppointmentPriceInCents int64                  `db:"appointment_price_in_cents" json:"appointment_price_in_cents"`
	AvailableFromWeekday    int                    `db:"available_from_weekday" json:"available_from_weekday"`
	AvailableToWeekday      int                    `db:"available_to_weekday" json:"available_to_weekday"`
	AvailableFromTime       availability.LocalTime `db:"available_from_time" json:"available_from_time"`
	AvailableToTime         availability.LocalTime `db:"available_to_time" json:"available_to_time"`
}

// Window returns the doctor's weekly availability.
func (d *Doctor) Window() availability.Window {
	return availability.Window{
		FromWeekday: time.Weekday(d.AvailableFromWeekday),
		ToWeekday:   time.Weekday(d.AvailableToWeekday),
		FromTime:    d.AvailableFromTime,
		ToTime:      d.AvailableToTime,
	}
}

// UpsertDoctorRequest creates a doctor when ID is absent and fully replaces
// the clinic's doctor with that ID otherwise.
type UpsertDoctorRequest struct {
	ID                      *uuid.UUID `json:"id"`
	Name                    string     `json:"name" validate:"required,notblank,max=255"`
	Specialty               string     `json:"specialty" validate:"required,notblank,max=255"`
	AvatarImageURL          string     `json:"avatar_image_url" validate:"omitempty,url"`
	AppointmentPriceInCents int64      `json:"appointment_price_in_cents" validate:"min=1"`
	AvailableFromWeekday    *int       `json:"available_from_weekday" validate:"required"`
	AvailableToWeekday      *int       `json:"available_to_weekday" validate:"required"`
	AvailableFromTime       string     `json:"available_from_time" validate:"required,timeofday"`
	AvailableToTime         string     `json:"available_to_time" validate:"required,timeofday"`
}

// DoctorView is a doctor as shown on the dashboard.
type DoctorView struct {
	*Doctor
	Price        string               `json:"appointment_price"`
	Availability availability.Display `json:"availability"`
}
