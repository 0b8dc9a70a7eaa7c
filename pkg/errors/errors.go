package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, FieldErrors(e.Fields).String())
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code onto the status the API responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrTenantRequired:
		return http.StatusForbidden
	case ErrValidation:
		return http.StatusUnprocessableEntity
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrTenantRequired
	ErrInternal
	ErrValidation
	ErrConflict
)

// MsgSlotTaken is shown when a booking loses the race for a slot.
const MsgSlotTaken = "slot no longer available, please choose another"

// Error constructors

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// TenantRequired is returned when an authenticated user has no clinic membership.
func TenantRequired(err error) *AppError {
	return &AppError{
		Code:    ErrTenantRequired,
		Message: "clinic not found",
		Err:     err,
	}
}

// Conflict reports a booking that cannot be placed. An empty reason falls
// back to MsgSlotTaken.
func Conflict(reason string, err error) *AppError {
	if reason == "" {
		reason = MsgSlotTaken
	}
	return &AppError{
		Code:    ErrConflict,
		Message: reason,
		Err:     err,
	}
}

// Validation wraps field-scoped messages. It panics on an empty set, use
// FieldErrors.Err when the set may be empty.
func Validation(fields FieldErrors) *AppError {
	if len(fields) == 0 {
		panic("errors: Validation called without field errors")
	}
	return &AppError{
		Code:    ErrValidation,
		Message: "validation failed",
		Fields:  map[string]string(fields),
	}
}

// FieldErrors collects one message per input field.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; ok {
		return
	}
	f[field] = msg
}

// Merge copies messages from other, keeping existing ones.
func (f FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		f.Add(k, v)
	}
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

func (f FieldErrors) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// CodeOf returns the AppError code in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// As is a shorthand for errors.As on *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

func IsNotFound(err error) bool       { return err != nil && CodeOf(err) == ErrNotFound }
func IsConflict(err error) bool       { return err != nil && CodeOf(err) == ErrConflict }
func IsValidation(err error) bool     { return err != nil && CodeOf(err) == ErrValidation }
func IsUnauthorized(err error) bool   { return err != nil && CodeOf(err) == ErrUnauthorized }
func IsTenantRequired(err error) bool { return err != nil && CodeOf(err) == ErrTenantRequired }

// FieldsOf returns the field messages of a validation error, or nil.
func FieldsOf(err error) map[string]string {
	if appErr, ok := As(err); ok {
		return appErr.Fields
	}
	return nil
}
