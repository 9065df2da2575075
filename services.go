package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yulian302/lfusys-services-media/commons/caching"
	"github.com/Yulian302/lfusys-services-media/commons/config"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/Yulian302/lfusys-services-media/handlers"
	"github.com/Yulian302/lfusys-services-media/keys"
	"github.com/Yulian302/lfusys-services-media/queues"
	"github.com/Yulian302/lfusys-services-media/services"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/hashicorp/go-multierror"
)

type Stores struct {
	objects  store.ObjectStore
	sessions store.SessionStore
}

type Services struct {
	Uploads   services.UploadService
	Multipart services.MultipartService
	Reaper    *services.MultipartReaper
	Notifier  queues.UploadsNotifier
	Metrics   *metrics.Metrics

	Stores *Stores

	HTTPHandler *handlers.HttpHandler
}

func BuildServices(app *App) *Services {
	cfg := app.Config
	l := app.Logger

	objectStore := store.NewS3ObjectStoreImpl(app.S3, store.S3Options{
		BucketName: cfg.AWSConfig.Bucket,
		Region:     cfg.AWSConfig.Region,
		CDNDomain:  cfg.AWSConfig.CDNDomain,
		Endpoint:   cfg.AWSConfig.Endpoint,
	}, l)

	var sessStore store.SessionStore
	switch cfg.SessionTracking {
	case config.SessionTrackingDynamoDB:
		sessStore = store.NewDynamoDbSessionStoreImpl(app.DynamoDB, cfg.DynamoDBConfig.SessionsTableName)
	case config.SessionTrackingRedis:
		var cachingSvc caching.CachingService
		cachingSvc = caching.NewRedisCachingService(app.Redis)
		if app.Redis == nil {
			cachingSvc = caching.NewNullCachingService()
		}
		sessStore = store.NewRedisSessionStoreImpl(cachingSvc)
	}

	var notifier queues.UploadsNotifier = queues.NewNullUploadsNotifier()
	if name := cfg.ServiceConfig.UploadsNotificationsQueueName; name != "" {
		notifier = queues.NewSqsUploadsNotifierImpl(app.Sqs, queueURL(*cfg.AWSConfig, name), l)
	}

	m := metrics.New()
	keyGen := keys.NewGenerator()
	opts := services.UploadOptions{
		DefaultFolder:        cfg.UploadsConfig.DefaultFolder,
		PresignExpiry:        cfg.UploadsConfig.PresignExpiry,
		LargeFilePresignTTL:  cfg.UploadsConfig.LargeFilePresignTTL,
		PartURLExpiry:        cfg.UploadsConfig.PartURLExpiry,
		EnforceMultipartType: cfg.UploadsConfig.EnforceMultipartType,
		SessionTTL:           cfg.SessionTTL,
	}

	uploadSvc := services.NewUploadServiceImpl(objectStore, keyGen, notifier, m, opts, l)
	multipartSvc := services.NewMultipartServiceImpl(objectStore, sessStore, keyGen, notifier, m, opts, l)

	var reaper *services.MultipartReaper
	if rc := cfg.ReaperConfig; rc != nil && rc.Enabled {
		reaper = services.NewMultipartReaper(objectStore, sessStore, m, services.ReaperOptions{
			MaxAge:    rc.MaxAge,
			Prefix:    rc.Prefix,
			MaxAborts: rc.MaxAborts,
		}, l)
		reaper.Start(context.Background(), rc.Interval, rc.StartupSweep)
	}

	return &Services{
		Uploads:   uploadSvc,
		Multipart: multipartSvc,
		Reaper:    reaper,
		Notifier:  notifier,
		Metrics:   m,

		Stores: &Stores{
			objects:  objectStore,
			sessions: sessStore,
		},

		HTTPHandler: handlers.NewHttpHandler(uploadSvc, multipartSvc, l.With("component", "http")),
	}
}

// queueURL builds the SQS queue URL; names ending in .fifo are used as-is.
func queueURL(cfg config.AWSConfig, name string) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.AccountID, name)
	}
	return fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", cfg.Region, cfg.AccountID, name)
}

func (s *Services) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	if s.Reaper != nil {
		if err := s.Reaper.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("reaper: %w", err))
		}
	}

	return result.ErrorOrNil()
}
