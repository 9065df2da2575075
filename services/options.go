package services

import "time"

type UploadOptions struct {
	// DefaultFolder is used by the generic upload path.
	DefaultFolder string
	// VideoFolder is used by the large-file and multipart paths.
	VideoFolder string

	PresignExpiry       time.Duration
	LargeFilePresignTTL time.Duration
	PartURLExpiry       time.Duration

	// EnforceMultipartType applies the video allow-list at multipart init.
	EnforceMultipartType bool
	// SessionTTL bounds how long a tracked multipart session is honoured.
	SessionTTL time.Duration
}

const maxPresignExpiry = 7 * 24 * time.Hour

func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		DefaultFolder:       "uploads",
		VideoFolder:         "videos",
		PresignExpiry:       time.Hour,
		LargeFilePresignTTL: time.Hour,
		PartURLExpiry:       time.Hour,
		SessionTTL:          24 * time.Hour,
	}
}

func (o UploadOptions) withDefaults() UploadOptions {
	d := DefaultUploadOptions()
	if o.DefaultFolder == "" {
		o.DefaultFolder = d.DefaultFolder
	}
	if o.VideoFolder == "" {
		o.VideoFolder = d.VideoFolder
	}
	if o.PresignExpiry <= 0 {
		o.PresignExpiry = d.PresignExpiry
	}
	if o.LargeFilePresignTTL <= 0 {
		o.LargeFilePresignTTL = d.LargeFilePresignTTL
	}
	if o.PartURLExpiry <= 0 {
		o.PartURLExpiry = d.PartURLExpiry
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = d.SessionTTL
	}
	return o
}

func folderOr(folder, fallback string) string {
	if folder == "" {
		return fallback
	}
	return folder
}
