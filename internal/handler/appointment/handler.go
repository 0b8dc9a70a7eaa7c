package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service appointment.AppointmentServicer
}

func NewHandler(service appointment.AppointmentServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", h.BookAppointment)
		appointments.POST("/check", h.CheckAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) CheckAppointment(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	var req model.BookAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	res, err := h.service.Check(c.Request.Context(), p, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	var req model.BookAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	apt, err := h.service.Book(c.Request.Context(), p, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}
	apt, err := h.service.Get(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

// ListAppointments accepts optional doctor_id, from and to query parameters.
// Dates are RFC 3339 instants or plain 2006-01-02 days in UTC.
func (h *Handler) ListAppointments(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	list, err := h.service.List(c.Request.Context(), p, filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	p, ok := handler.Authenticated(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "appointment")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseFilter(c *gin.Context) (model.AppointmentFilter, error) {
	var filter model.AppointmentFilter
	fields := errors.FieldErrors{}

	if v := c.Query("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fields.Add("doctor_id", "is invalid")
		} else {
			filter.DoctorID = &id
		}
	}
	for _, name := range []string{"from", "to"} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		t, err := parseDay(v)
		if err != nil {
			fields.Add(name, "must be a date like 2006-01-02")
			continue
		}
		if name == "from" {
			filter.From = &t
		} else {
			filter.To = &t
		}
	}
	return filter, fields.Err()
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return availability.ParseInstant(s, time.UTC)
}
