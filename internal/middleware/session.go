package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Session resolves an optional bearer token into a principal stored on the
// request context. Requests without a token pass through anonymously so
// that services can decide between Unauthorized and TenantRequired; a token
// that does not resolve is rejected.
func Session(provider session.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.Next()
			return
		}

		p, err := provider.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(session.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// Principal returns the principal resolved for c, or nil.
func Principal(c *gin.Context) *session.Principal {
	return session.FromContext(c.Request.Context())
}
