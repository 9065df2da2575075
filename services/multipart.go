package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/Yulian302/lfusys-services-media/keys"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/queues"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/validation"
)

// MultipartService coordinates init, part URL issuance, completion and abort
// of multipart uploads. The calls are independent: the byte transfer happens
// between the caller and object storage.
type MultipartService interface {
	Initiate(ctx context.Context, req models.InitUploadRequest) (*models.MultipartInitResponse, error)
	PartURL(ctx context.Context, req models.PartURLRequest) (*models.PartURLResponse, error)
	Complete(ctx context.Context, req models.CompleteUploadRequest) (*models.CompleteUploadResponse, error)
	Abort(ctx context.Context, req models.AbortUploadRequest) (*models.AbortUploadResponse, error)
}

type MultipartServiceImpl struct {
	objects store.ObjectStore
	// sessions is nil when session tracking is off; upload ids are then
	// trusted as given.
	sessions store.SessionStore
	keys     *keys.Generator
	notifier queues.UploadsNotifier
	metrics  *metrics.Metrics
	policy   validation.Policy
	opts     UploadOptions

	logger logger.Logger
	now    func() time.Time
}

func NewMultipartServiceImpl(
	objects store.ObjectStore,
	sessions store.SessionStore,
	keyGen *keys.Generator,
	notifier queues.UploadsNotifier,
	m *metrics.Metrics,
	opts UploadOptions,
	l logger.Logger,
) *MultipartServiceImpl {
	if notifier == nil {
		notifier = queues.NewNullUploadsNotifier()
	}
	opts = opts.withDefaults()
	return &MultipartServiceImpl{
		objects:  objects,
		sessions: sessions,
		keys:     keyGen,
		notifier: notifier,
		metrics:  m,
		policy:   validation.Multipart(opts.EnforceMultipartType),
		opts:     opts,
		logger:   l,
		now:      time.Now,
	}
}

// Initiate is not idempotent: every call opens a new session under a new key.
func (svc *MultipartServiceImpl) Initiate(ctx context.Context, req models.InitUploadRequest) (*models.MultipartInitResponse, error) {
	const op = "multipart_init"

	intent := req.Intent()
	if err := svc.policy.Validate(intent); err != nil {
		return nil, svc.invalid(op, err)
	}

	now := svc.now()
	fileKey := svc.keys.GenerateKey(folderOr(intent.Folder, svc.opts.VideoFolder), intent.FileName, intent.UploaderID)
	meta := intent.Metadata.WithRecognized(intent, models.UploadMethodMultipart, now)

	uploadID, err := svc.objects.InitiateMultipartUpload(ctx, fileKey, intent.ContentType, meta)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	if svc.sessions != nil {
		session := models.MultipartSession{
			UploadId:       uploadID,
			FileKey:        fileKey,
			ContentType:    intent.ContentType,
			FileName:       intent.FileName,
			FileSize:       intent.FileSize,
			UploaderID:     intent.UploaderID,
			Metadata:       meta,
			CreatedAt:      now.UTC(),
			ExpirationTime: now.Add(svc.opts.SessionTTL).Unix(),
		}
		if err := svc.sessions.CreateSession(ctx, session); err != nil {
			svc.logger.Error("failed to record multipart session", "upload_id", uploadID, "file_key", fileKey, "error", err)
			// an untracked session would be refused by every later call
			if abortErr := svc.objects.AbortMultipartUpload(ctx, fileKey, uploadID); abortErr != nil {
				svc.logger.Error("failed to abort untracked multipart upload", "upload_id", uploadID, "error", abortErr)
			}
			svc.metrics.Observe(op, metrics.OutcomeStorageError)
			return nil, fmt.Errorf("failed to record upload session: %w", err)
		}
	}

	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Info("multipart upload initiated", "upload_id", uploadID, "file_key", fileKey, "size", intent.FileSize)

	return &models.MultipartInitResponse{
		UploadId:     uploadID,
		FileKey:      fileKey,
		FileURL:      svc.objects.PublicURL(fileKey),
		UploadMethod: models.UploadMethodMultipart,
	}, nil
}

func (svc *MultipartServiceImpl) PartURL(ctx context.Context, req models.PartURLRequest) (*models.PartURLResponse, error) {
	const op = "multipart_part_url"

	if err := requireSessionFields(req.UploadId, req.FileKey); err != nil {
		return nil, svc.invalid(op, err)
	}
	if req.PartNumber == nil {
		return nil, svc.invalid(op, validation.Missing("partNumber"))
	}
	partNumber := *req.PartNumber
	if err := validation.ValidatePartNumber(partNumber); err != nil {
		return nil, svc.invalid(op, err)
	}

	if _, err := svc.lookupSession(ctx, req.UploadId, req.FileKey); err != nil {
		svc.metrics.Observe(op, outcomeFor(err))
		return nil, err
	}

	url, err := svc.objects.PresignedPartURL(ctx, req.FileKey, req.UploadId, partNumber, svc.opts.PartURLExpiry)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Debug("issued part upload url", "upload_id", req.UploadId, "part_number", partNumber)

	return &models.PartURLResponse{
		PresignedURL: url,
		PartNumber:   partNumber,
		UploadId:     req.UploadId,
		FileKey:      req.FileKey,
	}, nil
}

// Complete forwards the caller's part list as-is. Ordering and duplicate
// part numbers are rejected by object storage, not here.
func (svc *MultipartServiceImpl) Complete(ctx context.Context, req models.CompleteUploadRequest) (*models.CompleteUploadResponse, error) {
	const op = "multipart_complete"

	if err := requireSessionFields(req.UploadId, req.FileKey); err != nil {
		return nil, svc.invalid(op, err)
	}
	if err := validation.ValidateParts(req.Parts); err != nil {
		return nil, svc.invalid(op, err)
	}

	session, err := svc.lookupSession(ctx, req.UploadId, req.FileKey)
	if err != nil {
		svc.metrics.Observe(op, outcomeFor(err))
		return nil, err
	}

	fileURL, err := svc.objects.CompleteMultipartUpload(ctx, req.FileKey, req.UploadId, req.Parts)
	if err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	svc.forgetSession(ctx, req.UploadId)
	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Info("multipart upload completed", "upload_id", req.UploadId, "file_key", req.FileKey, "parts", len(req.Parts))

	evt := models.UploadCompletedEvent{
		UploadId:    req.UploadId,
		FileKey:     req.FileKey,
		FileURL:     fileURL,
		Method:      models.UploadMethodMultipart,
		PartsCount:  len(req.Parts),
		CompletedAt: svc.now().UTC(),
	}
	if session != nil {
		evt.UploaderID = session.UploaderID
		evt.ContentType = session.ContentType
	}
	if err := svc.notifier.NotifyUploadCompleted(ctx, evt); err != nil {
		svc.logger.Warn("upload completed notification failed", "upload_id", req.UploadId, "error", err)
	}

	return &models.CompleteUploadResponse{
		FileKey:    req.FileKey,
		FileURL:    fileURL,
		UploadId:   req.UploadId,
		PartsCount: len(req.Parts),
	}, nil
}

// Abort releases the storage-side session. Parts already uploaded are
// discarded by object storage.
func (svc *MultipartServiceImpl) Abort(ctx context.Context, req models.AbortUploadRequest) (*models.AbortUploadResponse, error) {
	const op = "multipart_abort"

	if err := requireSessionFields(req.UploadId, req.FileKey); err != nil {
		return nil, svc.invalid(op, err)
	}

	if _, err := svc.lookupSession(ctx, req.UploadId, req.FileKey); err != nil {
		svc.metrics.Observe(op, outcomeFor(err))
		return nil, err
	}

	if err := svc.objects.AbortMultipartUpload(ctx, req.FileKey, req.UploadId); err != nil {
		svc.metrics.Observe(op, metrics.OutcomeStorageError)
		return nil, err
	}

	svc.forgetSession(ctx, req.UploadId)
	svc.metrics.Observe(op, metrics.OutcomeSuccess)
	svc.logger.Info("multipart upload aborted", "upload_id", req.UploadId, "file_key", req.FileKey)

	return &models.AbortUploadResponse{
		UploadId: req.UploadId,
		FileKey:  req.FileKey,
		Aborted:  true,
	}, nil
}

// lookupSession returns (nil, nil) when tracking is disabled.
func (svc *MultipartServiceImpl) lookupSession(ctx context.Context, uploadID, fileKey string) (*models.MultipartSession, error) {
	if svc.sessions == nil {
		return nil, nil
	}

	session, err := svc.sessions.GetSession(ctx, uploadID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		svc.logger.Warn("unknown multipart session", "upload_id", uploadID, "file_key", fileKey)
		return nil, err
	}
	if err != nil {
		svc.logger.Error("failed to load multipart session", "upload_id", uploadID, "error", err)
		return nil, fmt.Errorf("failed to load upload session: %w", err)
	}

	if session.FileKey != fileKey {
		svc.logger.Warn("multipart session key mismatch", "upload_id", uploadID, "file_key", fileKey, "session_key", session.FileKey)
		return nil, fmt.Errorf("%w: upload %s does not belong to %s", apperror.ErrSessionNotFound, uploadID, fileKey)
	}
	return session, nil
}

func (svc *MultipartServiceImpl) forgetSession(ctx context.Context, uploadID string) {
	if svc.sessions == nil {
		return
	}
	if err := svc.sessions.Delete(ctx, uploadID); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		// the storage-side session is already closed
		svc.logger.Error("failed to delete multipart session record", "upload_id", uploadID, "error", err)
	}
}

func (svc *MultipartServiceImpl) invalid(op string, err error) error {
	svc.metrics.Observe(op, metrics.OutcomeInvalid)
	svc.logger.Debug("multipart request rejected", "operation", op, "error", err)
	return err
}

func requireSessionFields(uploadID, fileKey string) error {
	switch {
	case strings.TrimSpace(uploadID) == "":
		return validation.Missing("uploadId")
	case strings.TrimSpace(fileKey) == "":
		return validation.Missing("fileKey")
	}
	return nil
}

func outcomeFor(err error) string {
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeStorageError
}
