package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type confirmService interface {
	Confirm(ctx context.Context, req models.ConfirmRequest) (*models.ConfirmResult, error)
}

// ConfirmationConsumer applies confirmation answers that arrive on a topic,
// for example from an IVR or SMS reply integration.
type ConfirmationConsumer struct {
	*BaseConsumer
	confirmer confirmService
}

func NewConfirmationConsumer(kafkaURL, topic, groupID string, confirmer confirmService) *ConfirmationConsumer {
	return &ConfirmationConsumer{
		BaseConsumer: NewBaseConsumer(kafkaURL, topic, groupID),
		confirmer:    confirmer,
	}
}

// Start consumes until ctx is cancelled
func (c *ConfirmationConsumer) Start(ctx context.Context) {
	if !c.Enabled() {
		logger.Log.Info("Confirmation consumer disabled")
		return
	}
	logger.Log.Info("Starting confirmation consumer")
	c.ConsumeMessages(ctx, func(value []byte) error {
		return c.processConfirmation(ctx, value)
	})
}

// processConfirmation returns nil for messages that can never succeed so they are skipped
func (c *ConfirmationConsumer) processConfirmation(ctx context.Context, value []byte) error {
	var req models.ConfirmRequest
	if err := json.Unmarshal(value, &req); err != nil {
		logger.Log.Warnf("Skipping malformed confirmation message: %v", err)
		return nil
	}

	result, err := c.confirmer.Confirm(ctx, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrReminderNotFound) || errors.Is(err, apperrors.ErrInvalidRequest) {
			logger.Log.Warnf("Skipping confirmation for reminder %q: %v", req.ReminderID, err)
			return nil
		}
		return fmt.Errorf("confirm reminder %s: %w", req.ReminderID, err)
	}

	logger.Log.Infof("Reminder %s marked %s from stream (escalated: %t)", req.ReminderID, result.Status, result.Escalated)
	return nil
}
