package sqsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

const (
	maxMessages     = 10
	waitTimeSeconds = 20
)

// API is the subset of the SQS client the queue helpers use
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// ReceiveMessage long polls queueURL for up to ten messages
func ReceiveMessage(ctx context.Context, client API, queueURL string) ([]types.Message, error) {
	result, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitTimeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive message, %v", err)
	}

	return result.Messages, nil
}

// DeleteEntry builds a batch delete entry for a received message
func DeleteEntry(msg types.Message) types.DeleteMessageBatchRequestEntry {
	return types.DeleteMessageBatchRequestEntry{
		Id:            msg.MessageId,
		ReceiptHandle: msg.ReceiptHandle,
	}
}

func DeleteMessageBatch(ctx context.Context, client API, queueURL string, entries []types.DeleteMessageBatchRequestEntry) error {
	if len(entries) == 0 {
		return nil
	}

	logger.Log.Debugf("Deleting %d messages in a batch from SQS queue %s", len(entries), queueURL)
	result, err := client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("batch delete failed: %v", err)
	}

	if len(result.Failed) > 0 {
		logger.Log.Warnf("%d messages failed to delete in batch operation", len(result.Failed))
		for _, failure := range result.Failed {
			logger.Log.Warnf("Delete failure - ID: %s, Code: %s, Message: %s",
				aws.ToString(failure.Id), aws.ToString(failure.Code), aws.ToString(failure.Message))
		}
	}

	logger.Log.Debugf("Successfully deleted %d messages in batch", len(result.Successful))
	return nil
}
