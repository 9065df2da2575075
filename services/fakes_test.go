package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	"github.com/Yulian302/lfusys-services-media/models"
)

type fakeObjectStore struct {
	mu sync.Mutex

	nextUploadID int
	objects      map[string]models.Metadata
	open         map[string]string // uploadID -> key
	pending      []models.PendingUpload
	completed    map[string][]models.PartDescriptor
	aborted      []string

	lastExpires     time.Duration
	lastContentType string

	failWith   error
	abortFails map[string]error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:    map[string]models.Metadata{},
		open:       map[string]string{},
		completed:  map[string][]models.PartDescriptor{},
		abortFails: map[string]error{},
	}
}

func (f *fakeObjectStore) IsReady(context.Context) error { return nil }
func (f *fakeObjectStore) Name() string                  { return "fake" }

func (f *fakeObjectStore) PresignedUploadURL(_ context.Context, key, contentType string, expires time.Duration, _ models.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.lastExpires = expires
	f.lastContentType = contentType
	return fmt.Sprintf("https://s3.test/%s?X-Amz-Expires=%d", key, int64(expires/time.Second)), nil
}

func (f *fakeObjectStore) PresignedPartURL(_ context.Context, key, uploadID string, partNumber int32, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.lastExpires = expires
	return fmt.Sprintf("https://s3.test/%s?partNumber=%d&uploadId=%s", key, partNumber, uploadID), nil
}

func (f *fakeObjectStore) InitiateMultipartUpload(_ context.Context, key, contentType string, meta models.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.nextUploadID++
	id := fmt.Sprintf("up-%d", f.nextUploadID)
	f.open[id] = key
	f.objects[key+"#pending"] = meta
	f.lastContentType = contentType
	return id, nil
}

func (f *fakeObjectStore) CompleteMultipartUpload(_ context.Context, key, uploadID string, parts []models.PartDescriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	if f.open[uploadID] != key {
		return "", errors.New("NoSuchUpload: The specified upload does not exist.")
	}
	delete(f.open, uploadID)
	f.completed[uploadID] = parts
	f.objects[key] = nil
	return f.PublicURL(key), nil
}

func (f *fakeObjectStore) AbortMultipartUpload(_ context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.abortFails[uploadID]; err != nil {
		return err
	}
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.open, uploadID)
	f.aborted = append(f.aborted, uploadID)
	return nil
}

func (f *fakeObjectStore) ListMultipartUploads(context.Context, string) ([]models.PendingUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]models.PendingUpload, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeObjectStore) ObjectExists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStore) PutObject(_ context.Context, key, contentType string, _ []byte, meta models.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.objects[key] = meta
	f.lastContentType = contentType
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.MultipartSession
	failWith error
	deleted  []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]models.MultipartSession{}}
}

func (f *fakeSessionStore) IsReady(context.Context) error { return nil }
func (f *fakeSessionStore) Name() string                  { return "fake-sessions" }

func (f *fakeSessionStore) CreateSession(_ context.Context, s models.MultipartSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sessions[s.UploadId] = s
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, uploadID string) (*models.MultipartSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[uploadID]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[uploadID]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(f.sessions, uploadID)
	f.deleted = append(f.deleted, uploadID)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []models.UploadCompletedEvent
	failWith error
}

func (n *recordingNotifier) NotifyUploadCompleted(_ context.Context, evt models.UploadCompletedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.failWith
}

// tickingClock advances one millisecond per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Millisecond)
		return now
	}
}
