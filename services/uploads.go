package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/Yulian302/lfusys-services-media/keys"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/queues"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/validation"
	"github.com/gabriel-vasile/mimetype"
)

// UploadService is the single-shot path: presigned PUT issuance, the
// server-mediated upload, large-file init and status polling.
type UploadService interface {
	IssuePresignedURL(ctx context.Context, req models.PresignRequest) (*models.PresignResponse, error)
	UploadDirect(ctx context.Context, req models.DirectUploadRequest) (*models.DirectUploadResponse, error)
	InitLargeFile(ctx context.Context, req models.InitUploadRequest) (*models.LargeFileInitResponse, error)
	GetStatus(ctx context.Context, fileKey string) (*models.UploadStatusResponse, error)
}

type UploadServiceImpl struct {
	objects  store.ObjectStore
	keys     *keys.Generator
	notifier queues.UploadsNotifier
	metrics  *metrics.Metrics
	opts     UploadOptions

	logger logger.Logger
	now    func() time.Time
}

func NewUploadServiceImpl(
	objects store.ObjectStore,
	keyGen *keys.Generator,
	notifier queues.UploadsNotifier,
	m *metrics.Metrics,
	opts UploadOptions,
	l logger.Logger,
) *UploadServiceImpl {
	if notifier == nil {
		notifier = queues.NewNullUploadsNotifier()
	}
	return &UploadServiceImpl{
		objects:  objects,
		keys:     keyGen,
		notifier: notifier,
		metrics:  m,
		opts:     opts.withDefaults(),
		logger:   l,
		now:      time.Now,
	}
}

func (svc *UploadServiceImpl) IssuePresignedURL(ctx context.Context, req models.PresignRequest) (*models.PresignResponse, error) {
	const op = "presign"

	switch {
	case strings.TrimSpace(req.FileName) == "":
		return nil, svc.invalid(op, validation.Missing("fileName"))
	case strings.TrimSpace(req.ContentType) == "":
		return nil, svc.invalid(op, validation.Missing("contentType"))
	}

	expires := svc.opts.PresignExpiry
	if req.ExpiresIn != 0 {
		// range-check raw seconds; the Duration product overflows for large values
		maxSeconds := int64(maxPresignExpiry / time.Second)
		if req.ExpiresIn < 1 || req.ExpiresIn > maxSeconds {
			return nil, svc.invalid(op, &validation.Error{
				Code:    validation.InvalidValue,
				Field:   "expiresIn",
				Message: fmt.Sprintf("expiresIn must be between 1 and %d seconds", maxSeconds),
			})
		}
		expires = time.Duration(req.ExpiresIn) * time.Second
	}

	fileKey := svc.keys.GenerateKey(folderOr(req.Folder, svc.opts.DefaultFolder), req.FileName, req.UploaderID)

	url, err := svc.objects.PresignedUploadURL(ctx, fileKey, req.ContentType, expires, nil)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Info("issued presigned upload url", "file_key", fileKey, "expires_in", int64(expires/time.Second))

	return &models.PresignResponse{
		FileKey:      fileKey,
		PresignedURL: url,
		ExpiresIn:    int64(expires / time.Second),
	}, nil
}

// UploadDirect stores a body that has already been read fully into memory,
// which is why it is held to the generic size caps.
func (svc *UploadServiceImpl) UploadDirect(ctx context.Context, req models.DirectUploadRequest) (*models.DirectUploadResponse, error) {
	const op = "direct_upload"

	if len(req.Body) == 0 {
		return nil, svc.invalid(op, validation.Missing("file"))
	}

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(req.Body).String()
	}

	intent := models.UploadIntent{
		FileName:    req.FileName,
		FileSize:    int64(len(req.Body)),
		ContentType: contentType,
		Folder:      folderOr(req.Folder, svc.opts.DefaultFolder),
		UploaderID:  req.UploaderID,
		Metadata:    req.Metadata,
	}
	if err := validation.Generic().Validate(intent); err != nil {
		return nil, svc.invalid(op, err)
	}

	fileKey := svc.keys.GenerateKey(intent.Folder, intent.FileName, intent.UploaderID)
	meta := intent.Metadata.WithRecognized(intent, models.UploadMethodDirect, svc.now())

	if err := svc.objects.PutObject(ctx, fileKey, contentType, req.Body, meta); err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	fileURL := svc.objects.PublicURL(fileKey)
	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	if svc.metrics != nil {
		svc.metrics.UploadedBytes.Add(float64(intent.FileSize))
	}
	svc.logger.Info("stored direct upload", "file_key", fileKey, "size", intent.FileSize, "content_type", contentType)

	svc.notify(ctx, models.UploadCompletedEvent{
		FileKey:     fileKey,
		FileURL:     fileURL,
		Method:      models.UploadMethodDirect,
		UploaderID:  intent.UploaderID,
		ContentType: contentType,
		CompletedAt: svc.now().UTC(),
	})

	return &models.DirectUploadResponse{
		FileKey:     fileKey,
		FileURL:     fileURL,
		FileName:    intent.FileName,
		FileSize:    intent.FileSize,
		ContentType: contentType,
		Metadata:    meta,
	}, nil
}

// InitLargeFile issues one presigned PUT for a video of up to 5 GiB. Only the
// Content-Type header is signed so the browser PUT stays simple.
func (svc *UploadServiceImpl) InitLargeFile(ctx context.Context, req models.InitUploadRequest) (*models.LargeFileInitResponse, error) {
	const op = "large_file_init"

	intent := req.Intent()
	if err := validation.LargeFile().Validate(intent); err != nil {
		return nil, svc.invalid(op, err)
	}

	fileKey := svc.keys.GenerateKey(folderOr(intent.Folder, svc.opts.VideoFolder), intent.FileName, intent.UploaderID)
	ttl := svc.opts.LargeFilePresignTTL

	url, err := svc.objects.PresignedUploadURL(ctx, fileKey, intent.ContentType, ttl, nil)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Info("issued large file upload url", "file_key", fileKey, "size", intent.FileSize)

	return &models.LargeFileInitResponse{
		FileKey:      fileKey,
		PresignedURL: url,
		FileURL:      svc.objects.PublicURL(fileKey),
		ExpiresIn:    int64(ttl / time.Second),
		UploadMethod: models.UploadMethodPresignedPut,
	}, nil
}

func (svc *UploadServiceImpl) GetStatus(ctx context.Context, fileKey string) (*models.UploadStatusResponse, error) {
	const op = "status"

	if strings.TrimSpace(fileKey) == "" {
		return nil, svc.invalid(op, validation.Missing("fileKey"))
	}

	exists, err := svc.objects.ObjectExists(ctx, fileKey)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}
	svc.metrics.Observe(op, metrics.OutcomeSuccess)

	resp := &models.UploadStatusResponse{
		FileKey: fileKey,
		Exists:  exists,
		Status:  models.UploadStatusPending,
	}
	if exists {
		u := svc.objects.PublicURL(fileKey)
		resp.FileURL = &u
		resp.Status = models.UploadStatusUploaded
	}
	return resp, nil
}

func (svc *UploadServiceImpl) invalid(op string, err error) error {
	svc.metrics.Observe(op, metrics.OutcomeInvalid)
	svc.logger.Debug("upload request rejected", "operation", op, "error", err)
	return err
}

func (svc *UploadServiceImpl) notify(ctx context.Context, evt models.UploadCompletedEvent) {
	if err := svc.notifier.NotifyUploadCompleted(ctx, evt); err != nil {
		svc.logger.Warn("upload completed notification failed", "file_key", evt.FileKey, "error", err)
	}
}
