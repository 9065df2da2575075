package models

import "time"

type UploadCompletedEvent struct {
	EventId     string    `json:"event_id"`
	UploadId    string    `json:"upload_id,omitempty"`
	FileKey     string    `json:"file_key"`
	FileURL     string    `json:"file_url"`
	Method      string    `json:"upload_method"`
	UploaderID  string    `json:"uploader_id,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	PartsCount  int       `json:"parts_count,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
