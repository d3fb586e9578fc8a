package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relay-service/internal/models"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// RoomHandler manages room and message endpoints.
type RoomHandler struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	events   eventSink
	audit    *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, users repositories.UserRepository, events eventSink, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		rooms:    rooms,
		messages: messages,
		users:    users,
		events:   events,
		audit:    audit,
	}
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Enqueue(models.Event{
		Type:      models.EventRoomCreated,
		RoomID:    room.ID,
		RoomName:  room.Name,
		RequestID: requestIDFromContext(c),
	})
	emitAudit(c, h.audit, "INFO", "room created", "")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Sala criada com sucesso",
		"room":    room,
	})
}

// ListRooms handles GET /api/rooms, ordered by name ascending.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom handles GET /api/rooms/:name.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoomByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// JoinRoom handles POST /api/rooms/:name/join. Joining makes the user a room
// participant, so subsequent room events notify them.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	h.membership(c, true)
}

// LeaveRoom handles POST /api/rooms/:name/leave.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	h.membership(c, false)
}

func (h *RoomHandler) membership(c *gin.Context, join bool) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	room, err := h.rooms.GetRoomByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	eventType := models.EventUserJoined
	if join {
		err = h.rooms.AddParticipant(c.Request.Context(), room.ID, models.Participant{
			UserID:   user.ID,
			Username: user.Username,
		})
	} else {
		eventType = models.EventUserLeft
		err = h.rooms.RemoveParticipant(c.Request.Context(), room.ID, user.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Enqueue(models.Event{
		Type:          eventType,
		RoomID:        room.ID,
		RoomName:      room.Name,
		ActorID:       user.ID,
		ActorUsername: user.Username,
		RequestID:     requestIDFromContext(c),
	})
	c.JSON(http.StatusOK, gin.H{"room": room.Name, "user": user.Username})
}

// GetMessages handles GET /api/messages/:room_name, the full-history read a
// client issues when selecting a room. An unknown room yields an empty list,
// not an error, so clients can poll names that do not exist yet.
func (h *RoomHandler) GetMessages(c *gin.Context) {
	room, err := h.rooms.GetRoomByName(c.Request.Context(), c.Param("room_name"))
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusOK, []models.Message{})
			return
		}
		respondError(c, err)
		return
	}

	messages, err := h.messages.List(c.Request.Context(), room.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage handles POST /api/send-message. The room is created on first
// use when the name is unknown.
func (h *RoomHandler) SendMessage(c *gin.Context) {
	var req struct {
		RoomName    string `json:"room_name" binding:"required"`
		SenderID    string `json:"sender_id" binding:"required"`
		Content     string `json:"content" binding:"required"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender, err := h.users.GetUser(c.Request.Context(), req.SenderID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		respondError(c, err)
		return
	}
	if err != nil || !sender.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Usuário não encontrado"})
		return
	}

	room, err := h.rooms.GetRoomByName(c.Request.Context(), req.RoomName)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		room, err = h.rooms.CreateRoom(c.Request.Context(), req.RoomName)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), room.ID, sender, req.Content, req.MessageType)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Enqueue(models.Event{
		Type:          models.EventMessageAppended,
		RoomID:        room.ID,
		RoomName:      room.Name,
		ActorID:       sender.ID,
		ActorUsername: sender.Username,
		OccurredAt:    time.Now().UTC(),
		Message:       &msg,
		RequestID:     requestIDFromContext(c),
	})
	emitAudit(c, h.audit, "INFO", "message sent", sender.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Mensagem enviada com sucesso",
		"data":    msg,
	})
}
