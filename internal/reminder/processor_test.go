package reminder

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error) {
	args := m.Called(req.ScheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DispatchResult), args.Error(1)
}

func message(id, body string) types.Message {
	return types.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("rh-" + id),
		Body:          aws.String(body),
	}
}

func TestProcessBatchDeletesHandledMessages(t *testing.T) {
	dispatcher := new(MockDispatcher)
	dispatcher.On("Dispatch", "ok").Return(&models.DispatchResult{Success: true, ReminderID: "rem-1"}, nil)
	dispatcher.On("Dispatch", "gone").Return(nil, apperrors.ErrScheduleNotFound)
	dispatcher.On("Dispatch", "no-contact").Return(nil, apperrors.ErrRecipientNotFound)
	dispatcher.On("Dispatch", "db-down").Return(nil, apperrors.Persistence(errors.New("connection refused")))

	p := NewQueueProcessor(nil, "http://queue", dispatcher)
	toDelete := p.processBatch(context.Background(), []types.Message{
		message("m1", `{"scheduleId":"ok","elderlyId":"e1"}`),
		message("m2", `{"scheduleId":"gone","elderlyId":"e1"}`),
		message("m3", `not json`),
		message("m4", `{"scheduleId":"db-down","elderlyId":"e1"}`),
		message("m5", `{"scheduleId":"no-contact","elderlyId":"e1"}`),
	})

	var ids []string
	for _, entry := range toDelete {
		ids = append(ids, aws.ToString(entry.Id))
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m5"}, ids)
	assert.Equal(t, "rh-m1", aws.ToString(toDelete[0].ReceiptHandle))
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 4)
}

func TestProcessMessagesRequiresQueueURL(t *testing.T) {
	p := NewQueueProcessor(nil, "", new(MockDispatcher))
	assert.Error(t, p.ProcessMessages(context.Background()))
}

func TestProcessMessagesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewQueueProcessor(nil, "http://queue", new(MockDispatcher))
	assert.ErrorIs(t, p.ProcessMessages(ctx), context.Canceled)
}
