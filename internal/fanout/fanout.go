package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"relay-service/internal/models"
	"relay-service/internal/observability"
	"relay-service/internal/rabbitmq"
	"relay-service/internal/repositories"
)

const deliverAttempts = 3

// Fanout turns room events into per-user notifications. Producers enqueue
// after their own write has committed; the append response never waits on
// fanout. Deliveries are at-least-once: a failed notification write is
// retried, and a duplicate after a partial failure is acceptable.
type Fanout struct {
	rooms         repositories.RoomRepository
	notifications repositories.NotificationRepository
	publisher     rabbitmq.Publisher
	logger        *zap.SugaredLogger

	queue chan models.Event
	wg    sync.WaitGroup
}

// New constructs a Fanout with the given queue capacity.
func New(rooms repositories.RoomRepository, notifications repositories.NotificationRepository, publisher rabbitmq.Publisher, logger *zap.SugaredLogger, queueSize int) *Fanout {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Fanout{
		rooms:         rooms,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		queue:         make(chan models.Event, queueSize),
	}
}

// Start launches the consumer goroutine. It drains the queue until Stop.
func (f *Fanout) Start(ctx context.Context) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for event := range f.queue {
			observability.SetFanoutQueueDepth(len(f.queue))
			f.handle(ctx, event)
		}
	}()
}

// Stop closes the queue and waits for in-flight events to finish.
func (f *Fanout) Stop() {
	close(f.queue)
	f.wg.Wait()
}

// Enqueue hands an event to the fanout. It blocks only when the queue is
// full, which keeps delivery at-least-once instead of silently dropping.
func (f *Fanout) Enqueue(event models.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	f.queue <- event
	observability.SetFanoutQueueDepth(len(f.queue))
}

func (f *Fanout) handle(ctx context.Context, event models.Event) {
	// The broker mirror goes out regardless of recipients; consumers outside
	// the relay (audit, search, ...) see every room event.
	f.mirror(ctx, event)

	recipients, err := f.deriveRecipients(ctx, event)
	if err != nil {
		f.logger.Errorw("fanout recipient derivation failed",
			"event", event.Type, "room", event.RoomName, "error", err)
		return
	}

	for _, recipient := range recipients {
		notification := buildNotification(event, recipient)
		if err := f.deliver(ctx, notification); err != nil {
			f.logger.Errorw("notification delivery failed",
				"event", event.Type, "user", recipient.UserID, "error", err)
			continue
		}
		observability.IncNotificationDelivered(notification.Type)
	}
}

// deriveRecipients applies the recipient policy: room events reach everyone
// who has interacted with the room before, minus the actor. Room creation
// notifies nobody.
func (f *Fanout) deriveRecipients(ctx context.Context, event models.Event) ([]models.Participant, error) {
	if event.Type == models.EventRoomCreated || event.RoomID == "" {
		return nil, nil
	}

	participants, err := f.rooms.Participants(ctx, event.RoomID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(participants, func(p models.Participant, _ int) bool {
		return p.UserID != event.ActorID
	}), nil
}

func (f *Fanout) deliver(ctx context.Context, notification models.Notification) error {
	var err error
	for attempt := 0; attempt < deliverAttempts; attempt++ {
		if _, err = f.notifications.Create(ctx, notification); err == nil {
			return nil
		}
	}
	return err
}

func (f *Fanout) mirror(ctx context.Context, event models.Event) {
	envelope := observability.EventEnvelope{
		EventType: "room_event",
		EventName: event.Type,
		Payload:   event,
	}
	headers := observability.BuildHeaders(event.RequestID, "")
	if err := f.publisher.Publish(ctx, "relay.events."+event.Type, envelope, headers); err != nil {
		f.logger.Warnw("event mirror publish failed", "event", event.Type, "error", err)
	}
}

func buildNotification(event models.Event, recipient models.Participant) models.Notification {
	n := models.Notification{
		UserID:    recipient.UserID,
		RoomID:    event.RoomID,
		RoomName:  event.RoomName,
		Priority:  models.PriorityMedium,
		CreatedAt: time.Now().UTC(),
		Payload: map[string]any{
			"actor_username": event.ActorUsername,
		},
	}

	switch event.Type {
	case models.EventMessageAppended:
		n.Type = models.NotificationTypeMessage
		n.Title = fmt.Sprintf("Nova mensagem em %s", event.RoomName)
		if event.Message != nil {
			n.Message = fmt.Sprintf("%s: %s", event.ActorUsername, event.Message.Content)
			n.Payload["message_id"] = event.Message.ID
		}
	case models.EventFileStored:
		n.Type = models.NotificationTypeFileUpload
		n.Priority = models.PriorityHigh
		n.Title = fmt.Sprintf("Arquivo enviado em %s", event.RoomName)
		if event.File != nil {
			n.Message = fmt.Sprintf("%s enviou %s", event.ActorUsername, event.File.Filename)
			n.Payload["file_id"] = event.File.FileID
			n.Payload["filename"] = event.File.Filename
			n.Payload["file_size"] = event.File.SizeBytes
		}
	case models.EventUserJoined:
		n.Type = models.NotificationTypeUserJoin
		n.Priority = models.PriorityLow
		n.Title = fmt.Sprintf("Usuário entrou em %s", event.RoomName)
		n.Message = fmt.Sprintf("%s entrou na sala", event.ActorUsername)
	case models.EventUserLeft:
		n.Type = models.NotificationTypeUserLeave
		n.Priority = models.PriorityLow
		n.Title = fmt.Sprintf("Usuário saiu de %s", event.RoomName)
		n.Message = fmt.Sprintf("%s saiu da sala", event.ActorUsername)
	default:
		n.Type = models.NotificationTypeSystem
		n.Title = "Evento do sistema"
		n.Message = event.Type
	}
	return n
}
