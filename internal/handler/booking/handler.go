package booking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/booking"
	"github.com/mediflow/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.POST("/walk-in", h.BookWalkIn)
		appointments.DELETE("/:id", h.CancelAppointment)
		appointments.POST("/:id/reschedule", h.Reschedule)
		appointments.PATCH("/:id/arrive", h.MarkArrived)
		appointments.PATCH("/:id/complete", h.MarkCompleted)
		appointments.PATCH("/:id/no-show", h.MarkNoShow)
	}
	rg.PATCH("/slots/:id/priority", h.AssignWalkInPriority)
}

func parseID(c *gin.Context, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	appt, err := h.service.BookAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) BookWalkIn(c *gin.Context) {
	var req model.WalkInBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	appt, err := h.service.BookWalkIn(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := parseID(c, "appointment")
	if !ok {
		return
	}

	if err := h.service.CancelAppointment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "appointment cancelled"})
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := parseID(c, "appointment")
	if !ok {
		return
	}

	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	appt, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) MarkArrived(c *gin.Context) {
	h.transition(c, h.service.MarkArrived, "appointment marked arrived")
}

func (h *Handler) MarkCompleted(c *gin.Context) {
	h.transition(c, h.service.MarkCompleted, "appointment completed")
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow, "appointment marked no-show")
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error, message string) {
	id, ok := parseID(c, "appointment")
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": message})
}

func (h *Handler) AssignWalkInPriority(c *gin.Context) {
	id, ok := parseID(c, "slot")
	if !ok {
		return
	}

	var req model.WalkInPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slot, err := h.service.AssignWalkInPriority(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slot)
}
