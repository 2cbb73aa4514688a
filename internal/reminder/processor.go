package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
	"github.com/cjdreamy/M-kumbusha/internal/sqsutil"
)

type dispatchService interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error)
}

// QueueProcessor consumes queued send-reminder requests from SQS
type QueueProcessor struct {
	sqsClient  sqsutil.API
	queueURL   string
	dispatcher dispatchService
	retryDelay time.Duration
}

func NewQueueProcessor(sqsClient sqsutil.API, queueURL string, dispatcher dispatchService) *QueueProcessor {
	return &QueueProcessor{
		sqsClient:  sqsClient,
		queueURL:   queueURL,
		dispatcher: dispatcher,
		retryDelay: 5 * time.Second,
	}
}

// ProcessMessages polls the dispatch queue until ctx is cancelled
func (p *QueueProcessor) ProcessMessages(ctx context.Context) error {
	if p.queueURL == "" {
		logger.Log.Info("Dispatch queue URL not configured, skipping queue processor")
		return fmt.Errorf("dispatch queue URL not configured")
	}

	logger.Log.Infof("Starting to process dispatch messages from %s", p.queueURL)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Context cancelled, stopping queue processor")
			return ctx.Err()
		default:
		}

		rawMessages, err := sqsutil.ReceiveMessage(ctx, p.sqsClient, p.queueURL)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Log.Errorf("Error receiving messages from dispatch queue: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(p.retryDelay):
			}
			continue
		}

		if len(rawMessages) == 0 {
			continue
		}

		logger.Log.Infof("Received %d messages from dispatch queue", len(rawMessages))
		messagesToDelete := p.processBatch(ctx, rawMessages)

		if err := sqsutil.DeleteMessageBatch(ctx, p.sqsClient, p.queueURL, messagesToDelete); err != nil {
			logger.Log.Errorf("Error batch deleting dispatch messages: %v", err)
		}
	}
}

// processBatch dispatches each message and returns the ones to delete.
// Transient failures stay on the queue and become visible again.
func (p *QueueProcessor) processBatch(ctx context.Context, rawMessages []types.Message) []types.DeleteMessageBatchRequestEntry {
	var messagesToDelete []types.DeleteMessageBatchRequestEntry

	for _, rawMessage := range rawMessages {
		if p.processMessage(ctx, aws.ToString(rawMessage.Body)) {
			messagesToDelete = append(messagesToDelete, sqsutil.DeleteEntry(rawMessage))
		}
	}
	return messagesToDelete
}

func (p *QueueProcessor) processMessage(ctx context.Context, body string) bool {
	var req models.DispatchRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		logger.Log.Warnf("Malformed dispatch message, deleting: %v", err)
		return true
	}

	result, err := p.dispatcher.Dispatch(ctx, req)
	if err != nil {
		if apperrors.IsPermanent(err) {
			logger.Log.Warnf("Dropping dispatch for schedule %s: %v", req.ScheduleID, err)
			return true
		}
		logger.Log.Errorf("Dispatch for schedule %s failed, it will be retried: %v", req.ScheduleID, err)
		return false
	}

	logger.Log.Infof("Queued dispatch for schedule %s created reminder %s", req.ScheduleID, result.ReminderID)
	return true
}
