package models

import "time"

// Notification types.
const (
	NotificationTypeMessage    = "message"
	NotificationTypeFileUpload = "file_upload"
	NotificationTypeUserJoin   = "user_join"
	NotificationTypeUserLeave  = "user_leave"
	NotificationTypeSystem     = "system"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification is a per-user item derived from a room event. It is mutated
// only through the is_read transition and deleted only by its owner.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user"`
	RoomID    string         `json:"room,omitempty"`
	RoomName  string         `json:"room_name,omitempty"`
	Type      string         `json:"notification_type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"data,omitempty"`
}
