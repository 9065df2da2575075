package validation

var VideoTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-ms-wmv",
	"video/webm",
	"video/ogg",
	"video/mov",
	"video/x-quicktime",
}

var GenericTypes = []string{
	// images
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	// video
	"video/mp4",
	"video/quicktime",
	"video/x-msvideo",
	"video/webm",
	"video/ogg",
	// audio
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
	"audio/ogg",
	"audio/webm",
	"audio/mp4",
	// documents
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/csv",
	// archives
	"application/zip",
	"application/x-zip-compressed",
	"application/x-rar-compressed",
	"application/x-7z-compressed",
}

func LargeFile() Policy {
	return Policy{
		Name:         "large-file",
		MaxSize:      MaxLargeFileSize,
		AllowedTypes: VideoTypes,
		EnforceTypes: true,
	}
}

// Multipart checks size only unless enforceTypes is set.
func Multipart(enforceTypes bool) Policy {
	return Policy{
		Name:         "multipart",
		MaxSize:      MaxLargeFileSize,
		AllowedTypes: VideoTypes,
		EnforceTypes: enforceTypes,
	}
}

func Generic() Policy {
	return Policy{
		Name:         "generic",
		MaxSize:      MaxGenericNonVideo,
		VideoMaxSize: MaxGenericVideo,
		AllowedTypes: GenericTypes,
		EnforceTypes: true,
	}
}
