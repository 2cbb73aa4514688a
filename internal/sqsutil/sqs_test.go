package sqsutil

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSQS struct {
	mock.Mock
}

func (m *MockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQS) DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageBatchOutput), args.Error(1)
}

func TestReceiveMessageLongPolls(t *testing.T) {
	client := new(MockSQS)
	client.On("ReceiveMessage", mock.MatchedBy(func(in *sqs.ReceiveMessageInput) bool {
		return aws.ToString(in.QueueUrl) == "http://queue" && in.MaxNumberOfMessages == 10 && in.WaitTimeSeconds == 20
	})).Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{{MessageId: aws.String("m1")}}}, nil)

	msgs, err := ReceiveMessage(context.Background(), client, "http://queue")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	client.AssertExpectations(t)
}

func TestReceiveMessageError(t *testing.T) {
	client := new(MockSQS)
	client.On("ReceiveMessage", mock.Anything).Return(nil, errors.New("throttled"))

	_, err := ReceiveMessage(context.Background(), client, "http://queue")
	assert.ErrorContains(t, err, "throttled")
}

func TestDeleteMessageBatch(t *testing.T) {
	client := new(MockSQS)
	assert.NoError(t, DeleteMessageBatch(context.Background(), client, "http://queue", nil))
	client.AssertNotCalled(t, "DeleteMessageBatch", mock.Anything)

	entry := DeleteEntry(types.Message{MessageId: aws.String("m1"), ReceiptHandle: aws.String("rh1")})
	client.On("DeleteMessageBatch", mock.Anything).Return(&sqs.DeleteMessageBatchOutput{
		Failed: []types.BatchResultErrorEntry{{Id: aws.String("m1"), Code: aws.String("ReceiptHandleIsInvalid")}},
	}, nil)

	assert.NoError(t, DeleteMessageBatch(context.Background(), client, "http://queue", []types.DeleteMessageBatchRequestEntry{entry}))
	client.AssertNumberOfCalls(t, "DeleteMessageBatch", 1)
}
