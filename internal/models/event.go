package models

import "time"

// Event types produced by the registries and consumed by the fanout.
const (
	EventMessageAppended = "message_appended"
	EventFileStored      = "file_stored"
	EventRoomCreated     = "room_created"
	EventUserJoined      = "user_joined_room"
	EventUserLeft        = "user_left_room"
)

// Event describes something that happened to a room. ActorID identifies the
// user who caused it and is excluded from notification recipients.
type Event struct {
	Type          string      `json:"type"`
	RoomID        string      `json:"room_id,omitempty"`
	RoomName      string      `json:"room_name,omitempty"`
	ActorID       string      `json:"actor_id,omitempty"`
	ActorUsername string      `json:"actor_username,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Message       *Message    `json:"message,omitempty"`
	File          *FileRecord `json:"file,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`
}
