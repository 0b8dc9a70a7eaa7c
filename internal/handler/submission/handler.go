package submission

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/session"
	"github.com/jwalitptl/clinic-api/internal/submission"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	tracker *submission.Tracker
}

func NewHandler(tracker *submission.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/submissions/:id", h.GetSubmission)
}

// GetSubmission reports only the caller's own submissions; ids submitted by
// other users read as idle.
func (h *Handler) GetSubmission(c *gin.Context) {
	p := middleware.Principal(c)
	if err := session.RequireUser(p); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.tracker.Get(p.UserID.String(), c.Param("id")))
}
