package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

const UploadCompletedEventType = "upload.completed"

// UploadsNotifier hands finished uploads to the notification fan-out.
type UploadsNotifier interface {
	NotifyUploadCompleted(ctx context.Context, evt models.UploadCompletedEvent) error
}

type SqsUploadsNotifierImpl struct {
	client   *sqs.Client
	queueUrl string
	fifo     bool

	logger logger.Logger
}

func NewSqsUploadsNotifierImpl(client *sqs.Client, queueUrl string, l logger.Logger) *SqsUploadsNotifierImpl {
	return &SqsUploadsNotifierImpl{
		client:   client,
		queueUrl: queueUrl,
		fifo:     strings.HasSuffix(queueUrl, ".fifo"),
		logger:   l,
	}
}

func (n *SqsUploadsNotifierImpl) NotifyUploadCompleted(ctx context.Context, evt models.UploadCompletedEvent) error {
	if evt.EventId == "" {
		evt.EventId = uuid.NewString()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal upload completed event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueUrl),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": stringAttribute(UploadCompletedEventType),
		},
	}
	if evt.Method != "" {
		input.MessageAttributes["upload_method"] = stringAttribute(evt.Method)
	}
	if n.fifo {
		// one group per object keeps events for the same key ordered
		input.MessageGroupId = aws.String(evt.FileKey)
		input.MessageDeduplicationId = aws.String(evt.EventId)
	}

	out, err := n.client.SendMessage(ctx, input)
	if err != nil {
		n.logger.Error("failed to publish upload completed event", "file_key", evt.FileKey, "error", err)
		return fmt.Errorf("send upload completed event: %w", err)
	}

	n.logger.Debug("published upload completed event", "file_key", evt.FileKey, "message_id", aws.ToString(out.MessageId))
	return nil
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}

type NullUploadsNotifier struct{}

func NewNullUploadsNotifier() *NullUploadsNotifier {
	return &NullUploadsNotifier{}
}

func (NullUploadsNotifier) NotifyUploadCompleted(context.Context, models.UploadCompletedEvent) error {
	return nil
}
