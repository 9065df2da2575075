package models

// PresignRequest is bound from the query string of GET /api/upload.
type PresignRequest struct {
	FileName    string `form:"fileName"`
	ContentType string `form:"contentType"`
	Folder      string `form:"folder"`
	UploaderID  string `form:"uploaderId"`
	ExpiresIn   int64  `form:"expiresIn"`
}

type PresignResponse struct {
	FileKey      string `json:"fileKey"`
	PresignedURL string `json:"presignedUrl"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// DirectUploadRequest carries a fully buffered multipart/form-data file.
type DirectUploadRequest struct {
	FileName    string
	ContentType string
	Body        []byte
	Folder      string
	UploaderID  string
	Metadata    Metadata
}

type DirectUploadResponse struct {
	FileKey     string   `json:"fileKey"`
	FileURL     string   `json:"fileUrl"`
	FileName    string   `json:"fileName"`
	FileSize    int64    `json:"fileSize"`
	ContentType string   `json:"contentType"`
	Metadata    Metadata `json:"metadata"`
}

// InitUploadRequest is the body of both the large-file and multipart init calls.
type InitUploadRequest struct {
	FileName    string   `json:"fileName"`
	FileSize    int64    `json:"fileSize"`
	ContentType string   `json:"contentType"`
	Folder      string   `json:"folder,omitempty"`
	UploaderID  string   `json:"uploaderId,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

func (r InitUploadRequest) Intent() UploadIntent {
	return UploadIntent{
		FileName:    r.FileName,
		FileSize:    r.FileSize,
		ContentType: r.ContentType,
		Folder:      r.Folder,
		UploaderID:  r.UploaderID,
		Metadata:    r.Metadata,
	}
}

type LargeFileInitResponse struct {
	FileKey      string `json:"fileKey"`
	PresignedURL string `json:"presignedUrl"`
	FileURL      string `json:"fileUrl"`
	ExpiresIn    int64  `json:"expiresIn"`
	UploadMethod string `json:"uploadMethod"`
}

const (
	UploadStatusUploaded = "uploaded"
	UploadStatusPending  = "pending"
)

type UploadStatusResponse struct {
	FileKey string  `json:"fileKey"`
	Exists  bool    `json:"exists"`
	FileURL *string `json:"fileUrl"`
	Status  string  `json:"status"`
}

type MultipartInitResponse struct {
	UploadId     string `json:"uploadId"`
	FileKey      string `json:"fileKey"`
	FileURL      string `json:"fileUrl"`
	UploadMethod string `json:"uploadMethod"`
}

type PartURLRequest struct {
	UploadId   string `json:"uploadId"`
	FileKey    string `json:"fileKey"`
	PartNumber *int32 `json:"partNumber"`
}

type PartURLResponse struct {
	PresignedURL string `json:"presignedUrl"`
	PartNumber   int32  `json:"partNumber"`
	UploadId     string `json:"uploadId"`
	FileKey      string `json:"fileKey"`
}

type CompleteUploadRequest struct {
	UploadId string           `json:"uploadId"`
	FileKey  string           `json:"fileKey"`
	Parts    []PartDescriptor `json:"parts"`
}

type CompleteUploadResponse struct {
	FileKey    string `json:"fileKey"`
	FileURL    string `json:"fileUrl"`
	UploadId   string `json:"uploadId"`
	PartsCount int    `json:"partsCount"`
}

type AbortUploadRequest struct {
	UploadId string `json:"uploadId"`
	FileKey  string `json:"fileKey"`
}

type AbortUploadResponse struct {
	UploadId string `json:"uploadId"`
	FileKey  string `json:"fileKey"`
	Aborted  bool   `json:"aborted"`
}
