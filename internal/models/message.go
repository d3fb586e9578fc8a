package models

import "time"

// Message types carried by the relay.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
	MessageTypeFile   = "file"
)

// Message is an immutable chat entry. RoomName and SenderUsername are
// denormalized at creation time so history survives later renames. Seq is the
// per-room ordering key assigned under the append transaction; it breaks
// timestamp ties deterministically.
type Message struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room"`
	RoomName       string    `json:"room_name"`
	SenderID       string    `json:"sender"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"message_type"`
	Seq            int64     `json:"-"`
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeSystem, MessageTypeFile:
		return true
	}
	return false
}
