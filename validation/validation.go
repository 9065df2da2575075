// Package validation holds the upload rules shared by the single-shot and
// multipart paths.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Yulian302/lfusys-services-media/models"
)

type Code string

const (
	MissingField      Code = "MissingField"
	SizeExceeded      Code = "SizeExceeded"
	UnsupportedType   Code = "UnsupportedType"
	InvalidPartNumber Code = "InvalidPartNumber"
	InvalidParts      Code = "InvalidParts"
	InvalidValue      Code = "InvalidValue"
)

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB

	MaxLargeFileSize   = 5 * GiB
	MaxGenericVideo    = 100 * MiB
	MaxGenericNonVideo = 10 * MiB

	MinPartNumber = 1
	MaxPartNumber = 10000
)

// Error is a client-side validation failure. Message is safe to show users.
type Error struct {
	Code    Code
	Field   string
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}

func Missing(field string) *Error {
	return &Error{
		Code:    MissingField,
		Field:   field,
		Message: fmt.Sprintf("Missing required field: %s", field),
	}
}

type Policy struct {
	Name string
	// MaxSize applies to every content type unless VideoMaxSize is set.
	MaxSize int64
	// VideoMaxSize, when non-zero, caps video/* uploads separately.
	VideoMaxSize int64
	AllowedTypes []string
	EnforceTypes bool
}

// Validate checks required fields, then size, then content type.
// The first failing rule is returned.
func (p Policy) Validate(intent models.UploadIntent) error {
	switch {
	case strings.TrimSpace(intent.FileName) == "":
		return Missing("fileName")
	case intent.FileSize <= 0:
		return Missing("fileSize")
	case strings.TrimSpace(intent.ContentType) == "":
		return Missing("contentType")
	}

	if limit := p.limitFor(intent.ContentType); intent.FileSize > limit {
		return TooLarge(intent.FileSize, limit)
	}

	if p.EnforceTypes && !p.Allows(intent.ContentType) {
		return &Error{
			Code:  UnsupportedType,
			Field: "contentType",
			Message: fmt.Sprintf("Unsupported file type: %s. Allowed types: %s",
				intent.ContentType, strings.Join(p.AllowedTypes, ", ")),
			Details: p.AllowedTypes,
		}
	}
	return nil
}

// TooLarge reports a size cap violation. size is 0 when the body was cut
// off before its length was known.
func TooLarge(size, limit int64) *Error {
	if size <= 0 {
		return &Error{
			Code:    SizeExceeded,
			Field:   "fileSize",
			Message: fmt.Sprintf("File exceeds the maximum allowed size of %s", HumanSize(limit)),
			Details: map[string]int64{"maxSize": limit},
		}
	}
	return &Error{
		Code:  SizeExceeded,
		Field: "fileSize",
		Message: fmt.Sprintf("File size %s exceeds the maximum allowed size of %s",
			HumanSize(size), HumanSize(limit)),
		Details: map[string]int64{"fileSize": size, "maxSize": limit},
	}
}

func (p Policy) limitFor(contentType string) int64 {
	if p.VideoMaxSize > 0 && IsVideo(contentType) {
		return p.VideoMaxSize
	}
	return p.MaxSize
}

func (p Policy) Allows(contentType string) bool {
	ct := normalize(contentType)
	for _, t := range p.AllowedTypes {
		if ct == t {
			return true
		}
	}
	return false
}

func IsVideo(contentType string) bool {
	return strings.HasPrefix(normalize(contentType), "video/")
}

// normalize drops MIME parameters ("; codecs=...") and case.
func normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func ValidatePartNumber(n int32) error {
	if n < MinPartNumber || n > MaxPartNumber {
		return &Error{
			Code:    InvalidPartNumber,
			Field:   "partNumber",
			Message: fmt.Sprintf("Part number must be between %d and %d", MinPartNumber, MaxPartNumber),
			Details: n,
		}
	}
	return nil
}

// ValidateParts requires a non-empty list where every part carries an ETag
// and a part number. Order and duplicates are left to object storage.
func ValidateParts(parts []models.PartDescriptor) error {
	if len(parts) == 0 {
		return &Error{
			Code:    InvalidParts,
			Field:   "parts",
			Message: "Parts array is required and must not be empty",
		}
	}
	for i, p := range parts {
		if strings.TrimSpace(p.ETag) == "" || p.PartNumber < MinPartNumber {
			return &Error{
				Code:    InvalidParts,
				Field:   "parts",
				Message: "Each part must have ETag and PartNumber",
				Details: map[string]int{"index": i},
			}
		}
	}
	return nil
}

// HumanSize renders bytes as GiB or MiB with two decimals, matching what the
// upload forms display.
func HumanSize(n int64) string {
	switch {
	case n >= GiB:
		return fmt.Sprintf("%.2fGB", float64(n)/float64(GiB))
	case n >= MiB:
		return fmt.Sprintf("%.2fMB", float64(n)/float64(MiB))
	case n >= KiB:
		return fmt.Sprintf("%.2fKB", float64(n)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
