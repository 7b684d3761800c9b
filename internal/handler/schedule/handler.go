package schedule

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/schedule"
	"github.com/mediflow/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	doctors := rg.Group("/doctors/:id")
	{
		doctors.GET("/slots", h.SlotBoard)
		doctors.GET("/slots/available", h.AvailableSlots)
		doctors.GET("/appointments", h.DoctorAppointments)
	}
	rg.GET("/patients/:id/appointments", h.PatientAppointments)
	rg.GET("/appointments", h.SearchAppointments)
	rg.GET("/schedules", h.DoctorSchedules)
}

func parseID(c *gin.Context, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// queryDate reads a date query parameter, defaulting to today.
func queryDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return model.DateOnly(time.Now()), true
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) SlotBoard(c *gin.Context) {
	id, ok := parseID(c, "doctor")
	if !ok {
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}

	views, err := h.service.SlotBoard(c.Request.Context(), id, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, views)
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	id, ok := parseID(c, "doctor")
	if !ok {
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}

	views, err := h.service.AvailableSlots(c.Request.Context(), id, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, views)
}

func (h *Handler) DoctorAppointments(c *gin.Context) {
	id, ok := parseID(c, "doctor")
	if !ok {
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}

	appointments, err := h.service.DoctorAppointments(c.Request.Context(), id, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) PatientAppointments(c *gin.Context) {
	id, ok := parseID(c, "patient")
	if !ok {
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	page, err := h.service.PatientAppointments(c.Request.Context(), id, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Items, page.Page, page.PageSize, page.Total)
}

func (h *Handler) SearchAppointments(c *gin.Context) {
	filters := model.AppointmentFilters{
		Range:      c.Query("range"),
		DoctorName: c.Query("doctor_name"),
		Status:     model.AppointmentStatus(c.Query("status")),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date, expected YYYY-MM-DD"})
			return
		}
		filters.Date = &date
	}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	page, err := h.service.SearchAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Items, page.Page, page.PageSize, page.Total)
}

func (h *Handler) DoctorSchedules(c *gin.Context) {
	date, ok := queryDate(c)
	if !ok {
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	page, err := h.service.DoctorSchedules(c.Request.Context(), c.Query("name"), date, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Items, page.Page, page.PageSize, page.Total)
}
