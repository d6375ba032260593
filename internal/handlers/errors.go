package handlers

import (
	"errors"
	"net/http"

	"github.com/acadarchive/archive-api/internal/services"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/acadarchive/archive-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps service-layer errors onto HTTP statuses. Internal
// failures are logged with their cause but answered with a generic message.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	var re *services.ReferentialError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.As(err, &re):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": re.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "The record was changed or removed by someone else"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
	case errors.Is(err, storage.ErrOutsideRoot):
		// A stored path failed validation; never act on it
		logger.Error("Rejected file path outside storage root", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusForbidden, gin.H{"error": "File access denied"})
	default:
		logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
