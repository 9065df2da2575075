package caching

import (
	"context"
	"errors"
	"time"

	cerr "github.com/Yulian302/lfusys-services-media/commons/errors"
	"github.com/redis/go-redis/v9"
)

type CachingService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type RedisCachingService struct {
	client *redis.Client
}

func NewRedisCachingService(client *redis.Client) *RedisCachingService {
	return &RedisCachingService{client: client}
}

// Get returns cerr.ErrCacheMiss when the key is absent or expired.
func (c *RedisCachingService) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cerr.ErrCacheMiss
	}
	return val, err
}

func (c *RedisCachingService) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCachingService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCachingService) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type NullCachingService struct{}

func NewNullCachingService() *NullCachingService {
	return &NullCachingService{}
}

func (NullCachingService) Get(context.Context, string) (string, error) {
	return "", cerr.ErrCacheMiss
}

func (NullCachingService) Set(context.Context, string, string, time.Duration) error { return nil }

func (NullCachingService) Delete(context.Context, string) error { return nil }

func (NullCachingService) Ping(context.Context) error { return nil }
