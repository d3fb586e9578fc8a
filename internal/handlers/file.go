package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relay-service/internal/apperrors"
	"relay-service/internal/models"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// FileHandler carries the upload/download/list triad. Blob content crosses
// the boundary base64-encoded; the registry stores raw bytes.
type FileHandler struct {
	files    repositories.FileRepository
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	events   eventSink
	audit    *telemetry.AuditEmitter
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(files repositories.FileRepository, rooms repositories.RoomRepository, messages repositories.MessageRepository, users repositories.UserRepository, events eventSink, audit *telemetry.AuditEmitter) *FileHandler {
	return &FileHandler{
		files:    files,
		rooms:    rooms,
		messages: messages,
		users:    users,
		events:   events,
		audit:    audit,
	}
}

// Upload handles POST /api/files/upload. Storing the blob and announcing it
// in the room is one logical operation: when the announcement append fails,
// the stored record and blob are removed again so no partial write survives.
func (h *FileHandler) Upload(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		RoomName    string `json:"room_name" binding:"required"`
		Filename    string `json:"filename" binding:"required"`
		FileData    string `json:"file_data" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.ErrValidation, "file_data is not valid base64"))
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	room, err := h.rooms.GetRoomByName(c.Request.Context(), req.RoomName)
	if err != nil {
		respondError(c, err)
		return
	}

	record, err := h.files.Store(c.Request.Context(), req.Filename, data, room.ID, user.Username, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	content := fmt.Sprintf("📎 Arquivo compartilhado: %s", record.Filename)
	if req.Description != "" {
		content += " - " + req.Description
	}

	msg, err := h.messages.Append(c.Request.Context(), room.ID, user, content, models.MessageTypeFile)
	if err != nil {
		if delErr := h.files.Delete(c.Request.Context(), record.FileID); delErr != nil {
			// The record survives; the next upload of the same file is a new id,
			// so the orphan is only garbage, never wrong data.
			emitAudit(c, h.audit, "ERROR", "upload compensation failed", user.ID)
		}
		respondError(c, err)
		return
	}

	h.events.Enqueue(models.Event{
		Type:          models.EventFileStored,
		RoomID:        room.ID,
		RoomName:      room.Name,
		ActorID:       user.ID,
		ActorUsername: user.Username,
		OccurredAt:    time.Now().UTC(),
		File:          &record,
		Message:       &msg,
		RequestID:     requestIDFromContext(c),
	})
	emitAudit(c, h.audit, "INFO", "file uploaded", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Arquivo enviado com sucesso",
		"file_info": record,
	})
}

// Download handles GET /api/files/:id/download.
func (h *FileHandler) Download(c *gin.Context) {
	record, data, err := h.files.Retrieve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_info": record,
		"file_data": base64.StdEncoding.EncodeToString(data),
	})
}

// List handles GET /api/files?room=. With a room name the listing is
// restricted to that room; an unknown name lists nothing.
func (h *FileHandler) List(c *gin.Context) {
	roomID := ""
	if roomName := c.Query("room"); roomName != "" {
		room, err := h.rooms.GetRoomByName(c.Request.Context(), roomName)
		if err != nil {
			if errors.Is(err, repositories.ErrRoomNotFound) {
				c.JSON(http.StatusOK, gin.H{"files": []models.FileRecord{}})
				return
			}
			respondError(c, err)
			return
		}
		roomID = room.ID
	}

	records, err := h.files.List(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": records})
}
