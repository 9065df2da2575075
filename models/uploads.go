package models

import (
	"strconv"
	"time"
)

// Recognized metadata keys. Anything else a caller sends is carried as-is
// in the extension area of the map.
const (
	MetaOriginalName = "original-name"
	MetaFileSize     = "file-size"
	MetaUploadedBy   = "uploaded-by"
	MetaUploadedAt   = "upload-timestamp"
	MetaUploadMethod = "upload-method"
)

const (
	UploadMethodPresignedPut = "presigned-put"
	UploadMethodDirect       = "direct"
	UploadMethodMultipart    = "multipart"
)

// Metadata is attached to stored objects as user metadata.
type Metadata map[string]string

// UploadIntent describes one upload attempt. It lives for a single request.
type UploadIntent struct {
	FileName    string
	FileSize    int64
	ContentType string
	Folder      string
	UploaderID  string
	Metadata    Metadata
}

// WithRecognized returns a copy of m with the recognized keys filled in from
// the intent. Caller-supplied extension keys are kept; recognized keys win.
func (m Metadata) WithRecognized(intent UploadIntent, method string, now time.Time) Metadata {
	out := make(Metadata, len(m)+5)
	for k, v := range m {
		out[k] = v
	}
	out[MetaOriginalName] = intent.FileName
	if intent.FileSize > 0 {
		out[MetaFileSize] = strconv.FormatInt(intent.FileSize, 10)
	}
	if intent.UploaderID != "" {
		out[MetaUploadedBy] = intent.UploaderID
	}
	out[MetaUploadedAt] = now.UTC().Format(time.RFC3339)
	out[MetaUploadMethod] = method
	return out
}

// PartDescriptor is reported by the caller after it PUT a part to storage.
type PartDescriptor struct {
	PartNumber int32  `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// MultipartSession mirrors an open multipart upload held by object storage.
// It is only persisted when session tracking is enabled.
type MultipartSession struct {
	UploadId       string    `dynamodbav:"upload_id" json:"upload_id"`
	FileKey        string    `dynamodbav:"file_key" json:"file_key"`
	ContentType    string    `dynamodbav:"content_type" json:"content_type"`
	FileName       string    `dynamodbav:"file_name" json:"file_name"`
	FileSize       int64     `dynamodbav:"file_size" json:"file_size"`
	UploaderID     string    `dynamodbav:"uploader_id,omitempty" json:"uploader_id,omitempty"`
	Metadata       Metadata  `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
	ExpirationTime int64     `dynamodbav:"expiration_time" json:"expiration_time"` // unix seconds, dynamodb TTL attribute
}

func (s MultipartSession) Expired(now time.Time) bool {
	return s.ExpirationTime > 0 && now.Unix() >= s.ExpirationTime
}

// PendingUpload is an open multipart upload as listed by object storage.
type PendingUpload struct {
	FileKey   string
	UploadId  string
	Initiated time.Time
}
