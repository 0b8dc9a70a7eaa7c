// Package session describes who is making a request and which clinic they
// act for. Services receive the Principal explicitly.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Clinic is the tenant a principal acts for.
type Clinic struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Timezone string    `json:"timezone,omitempty"`
}

// Principal is an authenticated user, optionally bound to a clinic.
type Principal struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Clinic *Clinic   `json:"clinic,omitempty"`

	// TokenID and TokenExpiresAt identify the access token the principal was
	// resolved from.
	TokenID        string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`
}

// Provider resolves a bearer token into a principal.
type Provider interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// RequireUser fails with an Unauthorized error when p is nil.
func RequireUser(p *Principal) error {
	if p == nil || p.UserID == uuid.Nil {
		return apperrors.Unauthorized(nil)
	}
	return nil
}

// RequireClinic returns the principal's clinic, failing with Unauthorized
// without a user and TenantRequired without a membership.
func RequireClinic(p *Principal) (*Clinic, error) {
	if err := RequireUser(p); err != nil {
		return nil, err
	}
	if p.Clinic == nil || p.Clinic.ID == uuid.Nil {
		return nil, apperrors.TenantRequired(nil)
	}
	return p.Clinic, nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
