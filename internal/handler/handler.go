// Package handler holds helpers shared by the HTTP handlers.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Authenticated returns the request's principal, responding 401 when the
// request is anonymous. Protected handlers call it before reading the body or
// path so that anonymous callers are sent to sign in rather than told about
// malformed input.
func Authenticated(c *gin.Context) (*session.Principal, bool) {
	p := middleware.Principal(c)
	if err := session.RequireUser(p); err != nil {
		httputil.RespondWithError(c, err)
		return nil, false
	}
	return p, true
}

// BindJSON decodes the request body into dst, responding 400 on malformed
// JSON. Field rules are enforced by the services.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return false
	}
	return true
}

// ParamID parses a UUID path parameter. Malformed ids are reported as not
// found, like ids belonging to another clinic.
func ParamID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, errors.NotFound(resource, err))
		return uuid.Nil, false
	}
	return id, true
}
