package retries

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond

	HealthAttempts  = 2
	HealthBaseDelay = 50 * time.Millisecond
)

// Retry runs fn with exponential backoff until it succeeds, attempts are
// exhausted, ctx is done, or isRetriable reports the error as permanent.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error, isRetriable func(error) bool) error {
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = baseDelay
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isRetriable != nil && !isRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// IsRetriableDbError treats throttling and transient server faults as
// retriable. Conditional check failures and validation errors are not.
func IsRetriableDbError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return false
	}

	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}
	var limit *types.RequestLimitExceeded
	if errors.As(err, &limit) {
		return true
	}
	var internal *types.InternalServerError
	if errors.As(err, &internal) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable", "InternalFailure":
			return true
		}
		return false
	}

	// not an API error: network level, worth another try
	return true
}
