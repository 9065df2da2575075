package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Yulian302/lfusys-services-media/commons/caching"
	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	"github.com/Yulian302/lfusys-services-media/models"
)

const sessionKeyPrefix = "media:multipart:session:"

// RedisSessionStoreImpl keeps session records as short-lived cache entries.
type RedisSessionStoreImpl struct {
	cache caching.CachingService
	now   func() time.Time
}

func NewRedisSessionStoreImpl(cache caching.CachingService) *RedisSessionStoreImpl {
	return &RedisSessionStoreImpl{
		cache: cache,
		now:   time.Now,
	}
}

func (s *RedisSessionStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.cache.Ping(ctx)
}

func (s *RedisSessionStoreImpl) Name() string {
	return "SessionStore[redis]"
}

func (s *RedisSessionStoreImpl) CreateSession(ctx context.Context, session models.MultipartSession) error {
	ttl := time.Unix(session.ExpirationTime, 0).Sub(s.now())
	if session.ExpirationTime == 0 {
		ttl = 0
	} else if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.UploadId)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, sessionKeyPrefix+session.UploadId, string(raw), ttl)
}

func (s *RedisSessionStoreImpl) GetSession(ctx context.Context, uploadID string) (*models.MultipartSession, error) {
	raw, err := s.cache.Get(ctx, sessionKeyPrefix+uploadID)
	if errors.Is(err, apperror.ErrCacheMiss) {
		return nil, apperror.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.MultipartSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("corrupt session record %s: %w", uploadID, err)
	}
	if session.Expired(s.now()) {
		return nil, apperror.ErrSessionNotFound
	}
	return &session, nil
}

func (s *RedisSessionStoreImpl) Delete(ctx context.Context, uploadID string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+uploadID)
}
