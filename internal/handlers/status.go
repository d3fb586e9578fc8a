package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relay-service/internal/poll"
	"relay-service/internal/rabbitmq"
)

// StatusHandler exposes the gateway status the clients probe on their
// connection timer.
type StatusHandler struct {
	publisher rabbitmq.Publisher
	tracker   *poll.Tracker
	service   string
}

// NewStatusHandler builds a StatusHandler.
func NewStatusHandler(publisher rabbitmq.Publisher, tracker *poll.Tracker, service string) *StatusHandler {
	return &StatusHandler{publisher: publisher, tracker: tracker, service: service}
}

// GatewayStatus handles GET /api/gateway/status.
func (h *StatusHandler) GatewayStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "connected",
		"service":       h.service,
		"store":         "badger",
		"broker":        rabbitmq.Mode(h.publisher),
		"poll_sessions": h.tracker.Active(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"headers": gin.H{
			"X-Gateway":    headerOrNotSet(c, "X-Gateway"),
			"X-Service":    headerOrNotSet(c, "X-Service"),
			"X-Request-ID": headerOrNotSet(c, "X-Request-ID"),
		},
	})
}

// Healthz handles GET /healthz.
func (h *StatusHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func headerOrNotSet(c *gin.Context, name string) string {
	if value := c.GetHeader(name); value != "" {
		return value
	}
	return "Not Set"
}
