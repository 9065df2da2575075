package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	SessionTrackingNone     = "none"
	SessionTrackingRedis    = "redis"
	SessionTrackingDynamoDB = "dynamodb"
)

type Config struct {
	Env         string
	Tracing     bool
	TracingAddr string

	SessionTracking string
	SessionTTL      time.Duration

	*AWSConfig
	*ServiceConfig
	*DynamoDBConfig
	*RedisConfig
	*UploadsConfig
	*ReaperConfig
}

type AWSConfig struct {
	Region    string
	AccountID string
	Bucket    string
	// CDNDomain, when set, is preferred over the S3 endpoint for public URLs.
	CDNDomain string
	// Endpoint overrides the AWS endpoint (localstack, minio).
	Endpoint     string
	UsePathStyle bool
}

type ServiceConfig struct {
	HTTPAddr                      string
	GRPCHealthAddr                string
	UploadsNotificationsQueueName string
}

type DynamoDBConfig struct {
	SessionsTableName string
}

type RedisConfig struct {
	HOST string
}

type UploadsConfig struct {
	DefaultFolder        string
	PresignExpiry        time.Duration
	LargeFilePresignTTL  time.Duration
	PartURLExpiry        time.Duration
	EnforceMultipartType bool
}

type ReaperConfig struct {
	Enabled      bool
	StartupSweep bool
	Interval     time.Duration
	MaxAge       time.Duration
	Prefix       string
	MaxAborts    int
}

func LoadConfig() Config {
	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Tracing:     getBool("TRACING", false),
		TracingAddr: getEnv("TRACING_ADDR", "localhost:4317"),

		SessionTracking: strings.ToLower(getEnv("SESSION_TRACKING", SessionTrackingNone)),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),

		AWSConfig: &AWSConfig{
			Region:       getEnv("AWS_REGION", "us-east-1"),
			AccountID:    getEnv("AWS_ACCOUNT_ID", ""),
			Bucket:       getEnv("S3_BUCKET_NAME", ""),
			CDNDomain:    getEnv("CDN_DOMAIN", ""),
			Endpoint:     getEnv("AWS_ENDPOINT", ""),
			UsePathStyle: getBool("S3_USE_PATH_STYLE", false),
		},
		ServiceConfig: &ServiceConfig{
			HTTPAddr:                      getEnv("HTTP_ADDR", ":8080"),
			GRPCHealthAddr:                getEnv("GRPC_HEALTH_ADDR", ":50052"),
			UploadsNotificationsQueueName: getEnv("UPLOADS_NOTIFICATIONS_QUEUE_NAME", ""),
		},
		DynamoDBConfig: &DynamoDBConfig{
			SessionsTableName: getEnv("DYNAMODB_SESSIONS_TABLE_NAME", "media_upload_sessions"),
		},
		RedisConfig: &RedisConfig{
			HOST: getEnv("REDIS_HOST", "localhost:6379"),
		},
		UploadsConfig: &UploadsConfig{
			DefaultFolder:        getEnv("UPLOADS_DEFAULT_FOLDER", "uploads"),
			PresignExpiry:        getDuration("PRESIGN_EXPIRY", time.Hour),
			LargeFilePresignTTL:  getDuration("LARGE_FILE_PRESIGN_EXPIRY", time.Hour),
			PartURLExpiry:        getDuration("PART_URL_EXPIRY", time.Hour),
			EnforceMultipartType: getBool("ENFORCE_MULTIPART_CONTENT_TYPE", false),
		},
		ReaperConfig: &ReaperConfig{
			Enabled:      getBool("REAPER_ENABLED", false),
			StartupSweep: getBool("REAPER_STARTUP_SWEEP", false),
			Interval:     getDuration("REAPER_INTERVAL", time.Hour),
			MaxAge:       getDuration("REAPER_MAX_AGE", 24*time.Hour),
			Prefix:       getEnv("REAPER_PREFIX", ""),
			MaxAborts:    getInt("REAPER_MAX_ABORTS", 0),
		},
	}
}

func (c *AWSConfig) Validate() error {
	var result *multierror.Error
	if c.Region == "" {
		result = multierror.Append(result, errors.New("AWS_REGION is required"))
	}
	if c.Bucket == "" {
		result = multierror.Append(result, errors.New("S3_BUCKET_NAME is required"))
	}
	if strings.Contains(c.CDNDomain, "/") {
		result = multierror.Append(result, fmt.Errorf("CDN_DOMAIN must be a bare host, got %q", c.CDNDomain))
	}
	return result.ErrorOrNil()
}

func (c Config) Validate() error {
	var result *multierror.Error
	if c.AWSConfig == nil {
		return errors.New("aws config is missing")
	}
	if err := c.AWSConfig.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.SessionTracking {
	case SessionTrackingNone, SessionTrackingRedis, SessionTrackingDynamoDB:
	default:
		result = multierror.Append(result, fmt.Errorf("SESSION_TRACKING must be one of none, redis, dynamodb; got %q", c.SessionTracking))
	}
	if c.SessionTracking != SessionTrackingNone && c.SessionTTL <= 0 {
		result = multierror.Append(result, errors.New("SESSION_TTL must be positive"))
	}

	if c.ReaperConfig != nil && c.ReaperConfig.Enabled {
		if c.ReaperConfig.Interval <= 0 {
			result = multierror.Append(result, errors.New("REAPER_INTERVAL must be positive"))
		}
		if c.ReaperConfig.MaxAge <= 0 {
			result = multierror.Append(result, errors.New("REAPER_MAX_AGE must be positive"))
		}
	}
	return result.ErrorOrNil()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("90m") or plain seconds ("3600").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
