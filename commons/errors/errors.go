package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("upload session not found")
	ErrCacheMiss       = errors.New("cache miss")
)
