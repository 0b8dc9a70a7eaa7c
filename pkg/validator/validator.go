package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Validator checks request payloads against their `validate` tags and
// reports failures keyed by JSON field name.
type Validator struct {
	v        *validator.Validate
	messages map[string]string
}

// Option configures a Validator.
type Option func(*Validator)

// WithRule registers a string rule under tag. Fields failing it are
// reported with message.
func WithRule(tag, message string, fn func(string) bool) Option {
	return func(val *Validator) {
		mustRegister(val.v, tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
		val.messages[tag] = message
	}
}

func New(opts ...Option) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		n := 0
		for _, r := range fl.Field().String() {
			if r >= '0' && r <= '9' {
				n++
			}
		}
		return n == 10 || n == 11
	})

	val := &Validator{v: v, messages: map[string]string{}}
	for _, opt := range opts {
		opt(val)
	}
	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validator: register %s: %v", tag, err))
	}
}

// Fields validates s and returns one message per failing field. The result
// is empty when s is valid.
func (v *Validator) Fields(s interface{}) (apperrors.FieldErrors, error) {
	fields := apperrors.FieldErrors{}
	err := v.v.Struct(s)
	if err == nil {
		return fields, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("failed to validate %T: %w", s, err)
	}
	for _, fe := range verrs {
		fields.Add(fe.Field(), v.message(fe))
	}
	return fields, nil
}

// Validate returns a validation AppError when s has failing fields.
func (v *Validator) Validate(s interface{}) error {
	fields, err := v.Fields(s)
	if err != nil {
		return err
	}
	return fields.Err()
}

func (v *Validator) message(fe validator.FieldError) string {
	if msg, ok := v.messages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "eqfield":
		return "does not match"
	case "timezone":
		return "must be a valid IANA time zone"
	case "phone":
		return "must have 10 or 11 digits"
	default:
		return "is invalid"
	}
}
