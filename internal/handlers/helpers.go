package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"relay-service/internal/apperrors"
	"relay-service/internal/middleware"
	"relay-service/internal/models"
	"relay-service/internal/telemetry"
)

// eventSink is the fanout surface handlers need; tests swap in a fake.
type eventSink interface {
	Enqueue(event models.Event)
}

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

// respondError maps a taxonomy error to its HTTP status. Anything outside the
// taxonomy is an internal error and its detail stays out of the response.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, level, text string, userID string) {
	if audit == nil {
		return
	}
	var userPtr *string
	if userID != "" {
		userPtr = &userID
	}
	audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userPtr)
}
