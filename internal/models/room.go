package models

import "time"

// Room is a named channel holding an ordered message history.
// MessageCount and LastSeq are maintained atomically with every append:
// LastSeq is the ordering key of the newest message and never decreases.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
	LastSeq      int64     `json:"last_seq"`
}

// Participant links a user to a room they have interacted with. Anyone who
// joined the room, sent a message, or uploaded a file counts.
type Participant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
