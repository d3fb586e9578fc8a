package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/apperrors"
	"relay-service/internal/repositories"
)

// NotificationHandler manages per-user notification endpoints.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifications repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/notifications?user_id=&unread=.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, apperrors.Wrap(apperrors.ErrValidation, "user_id is required"))
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notifications.List(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead handles POST /api/notifications/:id/mark_read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllRead handles POST /api/notifications/mark_all_read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Delete handles DELETE /api/notifications/:id?user_id=.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, apperrors.Wrap(apperrors.ErrValidation, "user_id is required"))
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
