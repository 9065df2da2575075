package store

import (
	"context"
	"errors"
	"time"

	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	"github.com/Yulian302/lfusys-services-media/commons/health"
	"github.com/Yulian302/lfusys-services-media/commons/retries"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SessionStore records multipart sessions this service issued, so that part
// and completion requests for unknown upload ids can be refused.
type SessionStore interface {
	CreateSession(ctx context.Context, session models.MultipartSession) error
	GetSession(ctx context.Context, uploadID string) (*models.MultipartSession, error)
	Delete(ctx context.Context, uploadID string) error

	health.ReadinessCheck
}

type DynamoDbSessionStoreImpl struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewDynamoDbSessionStoreImpl(client *dynamodb.Client, tableName string) *DynamoDbSessionStoreImpl {
	return &DynamoDbSessionStoreImpl{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoDbSessionStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	return retries.Retry(
		ctx,
		retries.HealthAttempts,
		retries.HealthBaseDelay,
		func() error {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(s.tableName),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoDbSessionStoreImpl) Name() string {
	return "SessionStore[" + s.tableName + "]"
}

func (s *DynamoDbSessionStoreImpl) CreateSession(ctx context.Context, session models.MultipartSession) error {
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return err
	}

	return retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(upload_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

// GetSession treats items past their TTL as missing; DynamoDB deletes
// expired items lazily.
func (s *DynamoDbSessionStoreImpl) GetSession(ctx context.Context, uploadID string) (*models.MultipartSession, error) {
	var session models.MultipartSession

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"upload_id": &types.AttributeValueMemberS{Value: uploadID},
				},
				ConsistentRead: aws.Bool(true),
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrSessionNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &session)
		},
		func(err error) bool {
			return !errors.Is(err, apperror.ErrSessionNotFound) && retries.IsRetriableDbError(err)
		},
	)
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, apperror.ErrSessionNotFound
	}
	return &session, nil
}

func (s *DynamoDbSessionStoreImpl) Delete(ctx context.Context, uploadID string) error {
	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"upload_id": &types.AttributeValueMemberS{Value: uploadID},
				},
				ConditionExpression: aws.String("attribute_exists(upload_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return apperror.ErrSessionNotFound
	}
	return err
}
