package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientServicer
}

func NewHandler(service patient.PatientServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.PUT("", h.UpsertPatient)
		patients.GET("/:id", h.GetPatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) UpsertPatient(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	var req model.UpsertPatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	pt, err := h.service.Upsert(c.Request.Context(), p, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pt)
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	pt, err := h.service.Get(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pt)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
