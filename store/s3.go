package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Yulian302/lfusys-services-media/commons/health"
	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectStore is the gateway to object storage. Every method is a single
// pass-through call: errors from the storage client are returned wrapped but
// otherwise unchanged, and nothing is retried here.
type ObjectStore interface {
	PresignedUploadURL(ctx context.Context, key string, contentType string, expires time.Duration, metadata models.Metadata) (string, error)
	PresignedPartURL(ctx context.Context, key string, uploadID string, partNumber int32, expires time.Duration) (string, error)
	InitiateMultipartUpload(ctx context.Context, key string, contentType string, metadata models.Metadata) (string, error)
	CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []models.PartDescriptor) (string, error)
	AbortMultipartUpload(ctx context.Context, key string, uploadID string) error
	ListMultipartUploads(ctx context.Context, prefix string) ([]models.PendingUpload, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	PutObject(ctx context.Context, key string, contentType string, body []byte, metadata models.Metadata) error
	PublicURL(key string) string

	health.ReadinessCheck
}

type S3ObjectStoreImpl struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	uploader   *manager.Uploader
	bucketName string
	region     string
	cdnDomain  string
	endpoint   string

	logger logger.Logger
}

type S3Options struct {
	BucketName string
	Region     string
	// CDNDomain is preferred over the S3 host when building public URLs.
	CDNDomain string
	// Endpoint is set for S3-compatible stores; public URLs become path-style.
	Endpoint string
}

func NewS3ObjectStoreImpl(client *s3.Client, opts S3Options, l logger.Logger) *S3ObjectStoreImpl {
	return &S3ObjectStoreImpl{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		uploader:   manager.NewUploader(client),
		bucketName: opts.BucketName,
		region:     opts.Region,
		cdnDomain:  strings.TrimSuffix(opts.CDNDomain, "/"),
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		logger:     l,
	}
}

func (s *S3ObjectStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	return err
}

func (s *S3ObjectStoreImpl) Name() string {
	return "ObjectStore[" + s.bucketName + "]"
}

// PresignedUploadURL signs a PUT for key. The caller must send the same
// Content-Type header, and the x-amz-meta-* headers when metadata is given,
// or storage rejects the request.
func (s *S3ObjectStoreImpl) PresignedUploadURL(
	ctx context.Context,
	key string,
	contentType string,
	expires time.Duration,
	metadata models.Metadata,
) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	presigned, err := s.presigner.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(s.bucketName),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
			Metadata:    metadata,
		},
		s3.WithPresignExpires(expires),
	)
	if err != nil {
		s.logger.Error("failed to presign put object", "key", key, "error", err)
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}

	s.logger.Debug("presigned put object", "key", key, "expires", expires)
	return presigned.URL, nil
}

func (s *S3ObjectStoreImpl) PresignedPartURL(
	ctx context.Context,
	key string,
	uploadID string,
	partNumber int32,
	expires time.Duration,
) (string, error) {
	if key == "" || uploadID == "" {
		return "", fmt.Errorf("key and uploadID cannot be empty")
	}

	presigned, err := s.presigner.PresignUploadPart(
		ctx,
		&s3.UploadPartInput{
			Bucket:     aws.String(s.bucketName),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
		},
		s3.WithPresignExpires(expires),
	)
	if err != nil {
		s.logger.Error("failed to presign upload part", "key", key, "upload_id", uploadID, "part_number", partNumber, "error", err)
		return "", fmt.Errorf("failed to presign part %d: %w", partNumber, err)
	}

	return presigned.URL, nil
}

// InitiateMultipartUpload opens a session in object storage. Nothing here
// expires it; abandoned sessions stay open until aborted or reaped.
func (s *S3ObjectStoreImpl) InitiateMultipartUpload(
	ctx context.Context,
	key string,
	contentType string,
	metadata models.Metadata,
) (string, error) {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.Error("failed to create multipart upload", "key", key, "error", err)
		return "", fmt.Errorf("failed to create multipart upload: %w", err)
	}

	uploadID := aws.ToString(out.UploadId)
	s.logger.Info("created multipart upload", "key", key, "upload_id", uploadID)
	return uploadID, nil
}

// CompleteMultipartUpload forwards parts in the order given. Ordering,
// duplicates and ETag correctness are checked by object storage only.
func (s *S3ObjectStoreImpl) CompleteMultipartUpload(
	ctx context.Context,
	key string,
	uploadID string,
	parts []models.PartDescriptor,
) (string, error) {
	completedParts := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completedParts = append(completedParts, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		s.logger.Error("failed to complete multipart upload", "upload_id", uploadID, "key", key, "error", err)
		return "", fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	s.logger.Info("successfully completed multipart upload", "upload_id", uploadID, "key", key, "parts", len(completedParts))
	return s.PublicURL(key), nil
}

func (s *S3ObjectStoreImpl) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		s.logger.Error("failed to abort multipart upload", "upload_id", uploadID, "key", key, "error", err)
		return fmt.Errorf("failed to abort multipart upload: %w", err)
	}

	s.logger.Info("aborted multipart upload", "upload_id", uploadID, "key", key)
	return nil
}

// ListMultipartUploads returns every open multipart upload under prefix.
func (s *S3ObjectStoreImpl) ListMultipartUploads(ctx context.Context, prefix string) ([]models.PendingUpload, error) {
	input := &s3.ListMultipartUploadsInput{
		Bucket: aws.String(s.bucketName),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var pending []models.PendingUpload
	for {
		select {
		case <-ctx.Done():
			return pending, ctx.Err()
		default:
		}

		out, err := s.client.ListMultipartUploads(ctx, input)
		if err != nil {
			s.logger.Error("failed to list multipart uploads", "prefix", prefix, "error", err)
			return pending, fmt.Errorf("failed to list multipart uploads: %w", err)
		}

		for _, u := range out.Uploads {
			pending = append(pending, models.PendingUpload{
				FileKey:   aws.ToString(u.Key),
				UploadId:  aws.ToString(u.UploadId),
				Initiated: aws.ToTime(u.Initiated),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.KeyMarker = out.NextKeyMarker
		input.UploadIdMarker = out.NextUploadIdMarker
	}

	s.logger.Debug("listed multipart uploads", "prefix", prefix, "count", len(pending))
	return pending, nil
}

// ObjectExists is a best-effort HEAD used for status polling only.
func (s *S3ObjectStoreImpl) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key cannot be empty")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})

	if err == nil {
		s.logger.Debug("file exists", "key", key)
		return true, nil
	}

	if isNotFound(err) {
		s.logger.Debug("file does not exist", "key", key)
		return false, nil
	}

	s.logger.Error("failed to check file existence", "key", key, "error", err)
	return false, fmt.Errorf("failed to check file existence: %w", err)
}

// PutObject stores a fully buffered body.
func (s *S3ObjectStoreImpl) PutObject(
	ctx context.Context,
	key string,
	contentType string,
	body []byte,
	metadata models.Metadata,
) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.Error("failed to put object", "key", key, "size", len(body), "error", err)
		return fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Info("successfully put object", "key", key, "size", len(body))
	return nil
}

func (s *S3ObjectStoreImpl) PublicURL(key string) string {
	u := url.URL{Scheme: "https", Path: "/" + key}
	switch {
	case s.cdnDomain != "":
		u.Host = s.cdnDomain
	case s.endpoint != "":
		base, err := url.Parse(s.endpoint)
		if err == nil && base.Host != "" {
			u.Scheme = base.Scheme
			u.Host = base.Host
			u.Path = "/" + s.bucketName + "/" + key
			break
		}
		u.Host = fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucketName, s.region)
	default:
		u.Host = fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucketName, s.region)
	}
	return u.String()
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}
