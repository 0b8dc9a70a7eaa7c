package validator

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type payload struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Price    int64  `json:"price_in_cents" validate:"min=1"`
	From     string `json:"from_time" validate:"required,timeofday"`
	Phone    string `json:"phone_number" validate:"omitempty,phone"`
	Sex      string `json:"sex" validate:"omitempty,oneof=male female"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

var clock = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

func newValidator() *Validator {
	return New(WithRule("timeofday", "time must use the HH:mm:ss format", clock.MatchString))
}

func TestFieldsUseJSONNames(t *testing.T) {
	v := newValidator()

	fields, err := v.Fields(&payload{
		Name:     "   ",
		Email:    "nope",
		Price:    0,
		From:     "8:00",
		Phone:    "123",
		Sex:      "other",
		Timezone: "Mars/Olympus",
	})
	require.NoError(t, err)
	assert.Equal(t, apperrors.FieldErrors{
		"name":           "is required",
		"email":          "must be a valid email",
		"price_in_cents": "must be at least 1",
		"from_time":      "time must use the HH:mm:ss format",
		"phone_number":   "must have 10 or 11 digits",
		"sex":            "must be one of: male, female",
		"timezone":       "must be a valid IANA time zone",
	}, fields)
}

func TestValidateAcceptsGoodPayload(t *testing.T) {
	err := newValidator().Validate(&payload{
		Name:     "Ana",
		Email:    "ana@example.com",
		Price:    1,
		From:     "08:00:00",
		Phone:    "(11) 98765-4321",
		Sex:      "female",
		Timezone: "America/Sao_Paulo",
	})
	assert.NoError(t, err)
}

func TestValidateReturnsValidationError(t *testing.T) {
	err := newValidator().Validate(&payload{})
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, apperrors.FieldsOf(err), "name")
}

func TestWithRule(t *testing.T) {
	v := New(WithRule("upper", "must be upper case", func(s string) bool { return s == strings.ToUpper(s) }))

	fields, err := v.Fields(&struct {
		Code string `json:"code" validate:"upper"`
	}{Code: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "must be upper case", fields["code"])

	assert.NoError(t, v.Validate(&struct {
		Code string `json:"code" validate:"upper"`
	}{Code: "ABC"}))
}
