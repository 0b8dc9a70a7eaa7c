package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/clinic"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service clinic.ClinicServicer
}

func NewHandler(service clinic.ClinicServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics")
	{
		clinics.POST("", h.CreateClinic)
		clinics.GET("/current", h.CurrentClinic)
	}
}

func (h *Handler) CreateClinic(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	var req model.CreateClinicRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	clinic, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, clinic)
}

func (h *Handler) CurrentClinic(c *gin.Context) {
	clinic, err := h.service.Current(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinic)
}
