package handler

import (
	"net/http"
	"time"

	"property-ledger-backend/internal/services/latefee"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LateFeeHandler struct {
	engine *latefee.Engine
}

func NewLateFeeHandler(e *latefee.Engine) *LateFeeHandler {
	return &LateFeeHandler{engine: e}
}

// Run triggers a late fee evaluation pass. as_of defaults to today;
// organization_id narrows the pass to one organization.
func (h *LateFeeHandler) Run(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}
	orgID := uuid.Nil
	if raw := c.Query("organization_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization_id"})
			return
		}
		orgID = id
	}

	result, err := h.engine.Run(c.Request.Context(), orgID, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LateFeeHandler) ApplyAction(c *gin.Context) {
	actionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	action, invoice, err := h.engine.ApplyAction(c.Request.Context(), actionID, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action, "invoice": invoice})
}

func parseAsOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of, expected yyyy-mm-dd"})
		return time.Time{}, false
	}
	return asOf, true
}
