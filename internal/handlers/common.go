package handler

import (
	"errors"
	"net/http"

	"property-ledger-backend/internal/services/application"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// respondError maps engine errors onto HTTP statuses: validation 400,
// conservation violations 422, missing rows 404, everything else 500.
func respondError(c *gin.Context, err error) {
	var conservation *application.ConservationError
	if errors.As(err, &conservation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     conservation.Error(),
			"code":      conservation.Code,
			"entity_id": conservation.EntityID.String(),
			"requested": conservation.Requested,
			"available": conservation.Available,
		})
		return
	}

	var validation *application.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Message,
			"code":  validation.Code,
		})
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
