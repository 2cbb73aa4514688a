// Package reminder holds the dispatch, confirmation and escalation workflow.
package reminder

import (
	"context"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// Store is the persistence the workflow needs
type Store interface {
	GetElderly(ctx context.Context, id string) (*models.Elderly, error)
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateReminder(ctx context.Context, r *models.Reminder) (*models.Reminder, error)
	GetReminderDetails(ctx context.Context, id string) (*models.ReminderDetails, error)
	RecordTransition(ctx context.Context, entry *models.ReminderLog) (bool, error)
}

// Sender delivers one message over a single channel
type Sender interface {
	Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error)
}

// EventPublisher announces workflow events to other services
type EventPublisher interface {
	Publish(ctx context.Context, event models.ReminderEvent) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.ReminderEvent) error { return nil }

func publish(ctx context.Context, events EventPublisher, event models.ReminderEvent) {
	if err := events.Publish(ctx, event); err != nil {
		logger.Log.Warnf("Failed to publish %s event for reminder %s: %v", event.Type, event.ReminderID, err)
	}
}
