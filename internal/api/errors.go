package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"go.uber.org/zap"
)

// respondError maps an error kind to its status code. Caller-facing
// errors carry their own message; anything else is logged and replaced by
// fallback so internals never reach the client.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	default:
		logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// propertyID parses the :id path parameter, answering 400 itself when it
// is not a UUID.
func propertyID(c *gin.Context) (uuid.UUID, bool) {
	return pathID(c, "property")
}

func userID(c *gin.Context) (uuid.UUID, bool) {
	return pathID(c, "user")
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}
