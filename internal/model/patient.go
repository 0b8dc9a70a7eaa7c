package model

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type Patient struct {
	Base
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Sex         Sex       `db:"sex" json:"sex"`
}

type UpsertPatientRequest struct {
	ID          *uuid.UUID `json:"id"`
	Name        string     `json:"name" validate:"required,notblank,max=255"`
	Email       string     `json:"email" validate:"required,email"`
	PhoneNumber string     `json:"phone_number" validate:"required,phone"`
	Sex         Sex        `json:"sex" validate:"required,oneof=male female"`
}

// PatientView is a patient as shown on the dashboard.
type PatientView struct {
	*Patient
	PhoneDisplay string `json:"phone_number_display"`
}

// NormalizePhone strips everything but digits.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// FormatPhone renders a Brazilian number with area code, e.g.
// "(11) 98765-4321". Other lengths are returned unchanged.
func FormatPhone(digits string) string {
	switch len(digits) {
	case 11:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	case 10:
		return "(" + digits[:2] + ") " + digits[2:6] + "-" + digits[6:]
	default:
		return digits
	}
}
