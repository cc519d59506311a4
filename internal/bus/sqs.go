package bus

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSPublisher publishes outbox events to an SQS FIFO queue. The partition
// key becomes the MessageGroupId, which gives the per-key ordering the relay
// relies on. The queue is expected to run with content-based deduplication,
// which absorbs redelivered outbox rows within the dedup window.
type SQSPublisher struct {
	Client   *sqs.Client
	QueueURL string
}

func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	return &SQSPublisher{Client: client, QueueURL: queueURL}
}

var _ Publisher = (*SQSPublisher)(nil)

func (p *SQSPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	_, err := p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(p.QueueURL),
		MessageBody:    aws.String(string(payload)),
		MessageGroupId: aws.String(key),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(topic),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s to SQS: %w", topic, err)
	}
	return nil
}
