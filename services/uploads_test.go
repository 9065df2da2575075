package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/Yulian302/lfusys-services-media/keys"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/validation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newUploadService(t *testing.T) (*UploadServiceImpl, *fakeObjectStore, *recordingNotifier, *metrics.Metrics) {
	t.Helper()

	objects := newFakeObjectStore()
	notifier := &recordingNotifier{}
	m := metrics.New()
	gen := &keys.Generator{Now: tickingClock(fixedNow)}

	svc := NewUploadServiceImpl(objects, gen, notifier, m, UploadOptions{}, logger.NewNopLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, objects, notifier, m
}

// pngHeader is enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestIssuePresignedURL(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)

	resp, err := svc.IssuePresignedURL(context.Background(), models.PresignRequest{
		FileName:    "Holiday Photo.JPG",
		ContentType: "image/jpeg",
		UploaderID:  "u7",
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("uploads/holiday_photo_u7_%d.JPG", fixedNow.UnixMilli()), resp.FileKey)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, time.Hour, objects.lastExpires)
	require.Equal(t, "image/jpeg", objects.lastContentType)
	require.Contains(t, resp.PresignedURL, resp.FileKey)
}

func TestIssuePresignedURL_CustomFolderAndExpiry(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)

	resp, err := svc.IssuePresignedURL(context.Background(), models.PresignRequest{
		FileName:    "a.png",
		ContentType: "image/png",
		Folder:      "avatars/",
		ExpiresIn:   120,
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("avatars/a_%d.png", fixedNow.UnixMilli()), resp.FileKey)
	require.Equal(t, int64(120), resp.ExpiresIn)
	require.Equal(t, 2*time.Minute, objects.lastExpires)

	resp, err = svc.IssuePresignedURL(context.Background(), models.PresignRequest{
		FileName:    "a.png",
		ContentType: "image/png",
		ExpiresIn:   7 * 24 * 3600,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7*24*3600), resp.ExpiresIn)
	require.Equal(t, 7*24*time.Hour, objects.lastExpires)
}

func TestIssuePresignedURL_Validation(t *testing.T) {
	svc, _, _, m := newUploadService(t)

	tests := []struct {
		name  string
		req   models.PresignRequest
		field string
		code  validation.Code
	}{
		{"missing file name", models.PresignRequest{ContentType: "image/png"}, "fileName", validation.MissingField},
		{"missing content type", models.PresignRequest{FileName: "a.png"}, "contentType", validation.MissingField},
		{"negative expiry", models.PresignRequest{FileName: "a.png", ContentType: "image/png", ExpiresIn: -1}, "expiresIn", validation.InvalidValue},
		{"expiry above a week", models.PresignRequest{FileName: "a.png", ContentType: "image/png", ExpiresIn: 8 * 24 * 3600}, "expiresIn", validation.InvalidValue},
		{"expiry overflowing duration", models.PresignRequest{FileName: "a.png", ContentType: "image/png", ExpiresIn: 10_000_000_000}, "expiresIn", validation.InvalidValue},
		{"expiry wrapping into range", models.PresignRequest{FileName: "a.png", ContentType: "image/png", ExpiresIn: 18_446_747_673}, "expiresIn", validation.InvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IssuePresignedURL(context.Background(), tt.req)
			var vErr *validation.Error
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tt.code, vErr.Code)
			require.Equal(t, tt.field, vErr.Field)
		})
	}
	require.Equal(t, 6.0, testutil.ToFloat64(m.UploadOperations.WithLabelValues("presign", metrics.OutcomeInvalid)))
}

func TestUploadDirect(t *testing.T) {
	svc, objects, notifier, m := newUploadService(t)

	resp, err := svc.UploadDirect(context.Background(), models.DirectUploadRequest{
		FileName:    "diagram.png",
		ContentType: "image/png",
		Body:        pngHeader,
		UploaderID:  "u1",
		Metadata:    models.Metadata{"course": "cs101"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(pngHeader)), resp.FileSize)
	require.Equal(t, "https://cdn.test/"+resp.FileKey, resp.FileURL)
	require.Equal(t, "cs101", resp.Metadata["course"])
	require.Equal(t, "diagram.png", resp.Metadata[models.MetaOriginalName])
	require.Equal(t, models.UploadMethodDirect, resp.Metadata[models.MetaUploadMethod])
	require.Equal(t, fixedNow.Format(time.RFC3339), resp.Metadata[models.MetaUploadedAt])

	_, stored := objects.objects[resp.FileKey]
	require.True(t, stored)
	require.Len(t, notifier.events, 1)
	require.Equal(t, float64(len(pngHeader)), testutil.ToFloat64(m.UploadedBytes))
}

func TestUploadDirect_SniffsMissingContentType(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)

	resp, err := svc.UploadDirect(context.Background(), models.DirectUploadRequest{
		FileName:    "diagram",
		ContentType: "application/octet-stream",
		Body:        pngHeader,
	})
	require.NoError(t, err)
	require.Equal(t, "image/png", resp.ContentType)
	require.Equal(t, "image/png", objects.lastContentType)
}

func TestUploadDirect_RejectsExecutable(t *testing.T) {
	svc, objects, notifier, _ := newUploadService(t)

	_, err := svc.UploadDirect(context.Background(), models.DirectUploadRequest{
		FileName:    "setup.exe",
		ContentType: "application/x-msdownload",
		Body:        []byte("MZ\x90\x00"),
	})

	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, validation.UnsupportedType, vErr.Code)
	require.Contains(t, vErr.Message, "Unsupported file type: application/x-msdownload. Allowed types:")
	require.Empty(t, objects.objects)
	require.Empty(t, notifier.events)
}

func TestUploadDirect_GenericSizeCaps(t *testing.T) {
	svc, _, _, _ := newUploadService(t)

	_, err := svc.UploadDirect(context.Background(), models.DirectUploadRequest{
		FileName:    "big.png",
		ContentType: "image/png",
		Body:        make([]byte, validation.MaxGenericNonVideo+1),
	})
	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, validation.SizeExceeded, vErr.Code)

	_, err = svc.UploadDirect(context.Background(), models.DirectUploadRequest{
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		Body:        make([]byte, validation.MaxGenericNonVideo+1),
	})
	require.NoError(t, err)
}

func TestUploadDirect_EmptyBody(t *testing.T) {
	svc, _, _, _ := newUploadService(t)

	_, err := svc.UploadDirect(context.Background(), models.DirectUploadRequest{FileName: "a.png"})
	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "file", vErr.Field)
}

func TestInitLargeFile(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)

	resp, err := svc.InitLargeFile(context.Background(), models.InitUploadRequest{
		FileName:    "lecture.mp4",
		FileSize:    validation.MaxLargeFileSize,
		ContentType: "video/mp4",
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("videos/lecture_%d.mp4", fixedNow.UnixMilli()), resp.FileKey)
	require.Equal(t, models.UploadMethodPresignedPut, resp.UploadMethod)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, "video/mp4", objects.lastContentType)
}

func TestInitLargeFile_Validation(t *testing.T) {
	svc, _, _, _ := newUploadService(t)

	_, err := svc.InitLargeFile(context.Background(), models.InitUploadRequest{
		FileName:    "lecture.mp4",
		FileSize:    validation.MaxLargeFileSize + 1,
		ContentType: "video/mp4",
	})
	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, validation.SizeExceeded, vErr.Code)
	require.Equal(t, "File size 5.00GB exceeds the maximum allowed size of 5.00GB", vErr.Message)

	_, err = svc.InitLargeFile(context.Background(), models.InitUploadRequest{
		FileName:    "slides.pdf",
		FileSize:    3 * validation.MiB,
		ContentType: "application/pdf",
	})
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, validation.UnsupportedType, vErr.Code)
}

func TestGetStatus(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)
	objects.objects["videos/lecture_1.mp4"] = nil

	resp, err := svc.GetStatus(context.Background(), "videos/lecture_1.mp4")
	require.NoError(t, err)
	require.True(t, resp.Exists)
	require.Equal(t, models.UploadStatusUploaded, resp.Status)
	require.NotNil(t, resp.FileURL)
	require.Equal(t, "https://cdn.test/videos/lecture_1.mp4", *resp.FileURL)

	resp, err = svc.GetStatus(context.Background(), "videos/missing.mp4")
	require.NoError(t, err)
	require.False(t, resp.Exists)
	require.Nil(t, resp.FileURL)
	require.Equal(t, models.UploadStatusPending, resp.Status)

	_, err = svc.GetStatus(context.Background(), " ")
	require.True(t, validation.IsValidationError(err))
}

func TestGetStatus_StorageError(t *testing.T) {
	svc, objects, _, _ := newUploadService(t)
	objects.failWith = errors.New("AccessDenied: Access Denied")

	_, err := svc.GetStatus(context.Background(), "videos/a.mp4")
	require.EqualError(t, err, "AccessDenied: Access Denied")
}
