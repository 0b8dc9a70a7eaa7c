package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// Pages a client is sent to when a request fails for lack of a session or a
// clinic.
const (
	RedirectAuthentication = "/authentication"
	RedirectClinicForm     = "/clinic-form"
)

// Response wraps all API responses
type Response struct {
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Data     interface{}       `json:"data,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// RespondWithSuccess sends a 200 response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

// RespondWithStatus sends a success response with the given status
func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError renders err. AppErrors keep their message and field
// errors; anything else becomes a generic 500.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	_ = c.Error(err)

	resp := Response{
		Status:  "error",
		Message: appErr.Message,
		Errors:  appErr.Fields,
	}
	switch appErr.Code {
	case errors.ErrUnauthorized:
		resp.Redirect = RedirectAuthentication
	case errors.ErrTenantRequired:
		resp.Redirect = RedirectClinicForm
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus(), resp)
}
