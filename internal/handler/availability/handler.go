package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediflow/scheduling-api/internal/middleware"
	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/service/availability"
	"github.com/mediflow/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	doctors := rg.Group("/doctors/:id")
	{
		doctors.POST("/availability", h.DefineAvailability)
		doctors.POST("/availability/day", h.CreateDayAvailability)
		doctors.PUT("/availability/day", h.ReplaceDayAvailability)
		doctors.POST("/slots/block", h.BlockSlots)
		doctors.POST("/slots/unblock", h.UnblockSlots)
		doctors.POST("/slots/shift", h.ShiftSlots)
	}
	rg.POST("/slots/emergency", h.AddEmergencySlot)
}

func doctorID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) DefineAvailability(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.DefineAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.DefineAvailability(c.Request.Context(), middleware.ActorRole(c), id, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "availability defined"})
}

func (h *Handler) CreateDayAvailability(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.DayAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.CreateDayAvailability(c.Request.Context(), middleware.ActorRole(c), id, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "availability created"})
}

func (h *Handler) ReplaceDayAvailability(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.DayAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.ReplaceDayAvailability(c.Request.Context(), middleware.ActorRole(c), id, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "availability replaced"})
}

func (h *Handler) AddEmergencySlot(c *gin.Context) {
	var req model.EmergencySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	slot, err := h.service.AddEmergencySlot(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, slot)
}

func (h *Handler) BlockSlots(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.BlockSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	blocked, err := h.service.BlockSlots(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"blocked": blocked})
}

func (h *Handler) UnblockSlots(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.UnblockSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	unblocked, err := h.service.UnblockSlots(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"unblocked": unblocked})
}

func (h *Handler) ShiftSlots(c *gin.Context) {
	id, ok := doctorID(c)
	if !ok {
		return
	}

	var req model.ShiftSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	shifted, err := h.service.ShiftSlots(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"shifted": shifted})
}
