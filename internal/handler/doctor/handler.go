package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service doctor.DoctorServicer
}

func NewHandler(service doctor.DoctorServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.PUT("", h.UpsertDoctor)
		doctors.GET("/:id", h.GetDoctor)
		doctors.DELETE("/:id", h.DeleteDoctor)
		doctors.GET("/:id/availability", h.GetAvailability)
	}
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.List(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) UpsertDoctor(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	var req model.UpsertDoctorRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	d, err := h.service.Upsert(c.Request.Context(), p, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "doctor")
	if !ok {
		return
	}
	d, err := h.service.Get(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "doctor")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "doctor")
	if !ok {
		return
	}
	display, err := h.service.Availability(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, display)
}
