package handler

import (
	"net/http"
	"time"

	"property-ledger-backend/internal/services/recurring"

	"github.com/gin-gonic/gin"
)

type RecurringHandler struct {
	processor *recurring.Processor
}

func NewRecurringHandler(p *recurring.Processor) *RecurringHandler {
	return &RecurringHandler{processor: p}
}

func (h *RecurringHandler) Run(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}
	schedules, err := h.processor.Tick(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (h *RecurringHandler) Pause(c *gin.Context) {
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	schedule, err := h.processor.Pause(c.Request.Context(), scheduleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule paused", "schedule": schedule})
}

func (h *RecurringHandler) Resume(c *gin.Context) {
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	schedule, err := h.processor.Resume(c.Request.Context(), scheduleID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule resumed", "schedule": schedule})
}

func (h *RecurringHandler) Cancel(c *gin.Context) {
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	schedule, err := h.processor.Cancel(c.Request.Context(), scheduleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule cancelled", "schedule": schedule})
}
