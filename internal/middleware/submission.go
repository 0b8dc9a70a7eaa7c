package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/submission"
)

// TrackSubmissions records the lifecycle of mutating requests under the
// caller's user id and the client supplied X-Request-ID. It must run after
// Session; anonymous requests are not tracked.
func TrackSubmissions(tracker *submission.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXRequestID)
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			id = ""
		}
		p := Principal(c)
		if id == "" || p == nil {
			c.Next()
			return
		}

		owner := p.UserID.String()
		tracker.Start(owner, id)
		c.Next()
		tracker.Finish(owner, id, c.Writer.Status())
	}
}
