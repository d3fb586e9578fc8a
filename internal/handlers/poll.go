package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"relay-service/internal/apperrors"
	"relay-service/internal/config"
	"relay-service/internal/observability"
	"relay-service/internal/poll"
	"relay-service/internal/repositories"
)

// PollHandler is the boundary clients re-poll on fixed timers. Every poll is
// a pure read: messages since the caller's cursor, the room snapshot, unread
// notifications, and a fresh cursor. It never blocks waiting for data.
type PollHandler struct {
	rooms         repositories.RoomRepository
	messages      repositories.MessageRepository
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	tracker       *poll.Tracker

	timeout     time.Duration
	startCursor string
	pageLimit   int
}

// NewPollHandler builds a PollHandler.
func NewPollHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, notifications repositories.NotificationRepository, users repositories.UserRepository, tracker *poll.Tracker, cfg config.Config) *PollHandler {
	return &PollHandler{
		rooms:         rooms,
		messages:      messages,
		notifications: notifications,
		users:         users,
		tracker:       tracker,
		timeout:       cfg.PollTimeout,
		startCursor:   cfg.PollStartCursor,
		pageLimit:     cfg.PageLimit,
	}
}

// Poll handles GET /api/rooms/:name/poll?cursor=&user_id=.
func (h *PollHandler) Poll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	ctx, span := otel.Tracer("relay-service/poll").Start(ctx, "gateway.poll")
	defer span.End()

	userID := c.Query("user_id")
	cursor := c.Query("cursor")
	roomName := c.Param("name")
	span.SetAttributes(attribute.String("room", roomName))

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	room, err := h.rooms.GetRoomByName(ctx, roomName)
	if err != nil {
		h.fail(c, err)
		return
	}

	// A session's first poll starts at the beginning of history or at the
	// live head, depending on gateway configuration.
	if cursor == "" && h.startCursor == config.StartNow {
		cursor, err = h.messages.HeadCursor(ctx, room.ID)
		if err != nil {
			h.fail(c, err)
			return
		}
	}

	messages, nextCursor, err := h.messages.ListSince(ctx, room.ID, cursor, h.pageLimit)
	if err != nil {
		h.fail(c, err)
		return
	}

	notifications, err := h.notifications.List(ctx, user.ID, true)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.tracker.Touch(user.ID, room.ID, nextCursor)
	observability.IncPollRequest("ok")
	c.JSON(http.StatusOK, gin.H{
		"room":          room,
		"messages":      messages,
		"notifications": notifications,
		"next_cursor":   nextCursor,
	})
}

func (h *PollHandler) fail(c *gin.Context, err error) {
	// A poll that ran out of time is transient; the client's next timer tick
	// retries it.
	if errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.Wrap(apperrors.ErrTransient, "poll timed out")
	}
	if errors.Is(err, apperrors.ErrTransient) {
		observability.IncPollRequest("timeout")
	} else {
		observability.IncPollRequest("error")
	}
	respondError(c, err)
}
