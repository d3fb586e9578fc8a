package models

import "time"

// FileRecord is the metadata of an uploaded blob. The blob bytes are stored
// separately under the registry's exclusive ownership and are never embedded
// in the record.
type FileRecord struct {
	FileID           string    `json:"file_id"`
	Filename         string    `json:"filename"`
	SizeBytes        int64     `json:"file_size"`
	UploadedAt       time.Time `json:"upload_date"`
	RoomID           string    `json:"room"`
	RoomName         string    `json:"room_name"`
	UploaderUsername string    `json:"uploader_username"`
	Description      string    `json:"description,omitempty"`
}
