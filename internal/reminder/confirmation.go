package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/metrics"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

const (
	confirmedLogMessage = "Reminder confirmed by user"
	missedLogMessage    = "Reminder marked as missed"
)

// Confirmer applies confirmation answers to reminders. Answers are not
// deduplicated: every call writes a log row and sets the status again.
type Confirmer struct {
	store     Store
	escalator *Escalator
	events    EventPublisher
	now       func() time.Time
}

func NewConfirmer(store Store, escalator *Escalator, events EventPublisher) *Confirmer {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Confirmer{store: store, escalator: escalator, events: events, now: time.Now}
}

func (c *Confirmer) Confirm(ctx context.Context, req models.ConfirmRequest) (*models.ConfirmResult, error) {
	if strings.TrimSpace(req.ReminderID) == "" || req.Confirmed == nil {
		return nil, apperrors.InvalidRequest("Missing required fields: reminderId, confirmed")
	}
	confirmed := *req.Confirmed

	details, err := c.store.GetReminderDetails(ctx, req.ReminderID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Persistence(err)
	}

	status := models.StatusMissed
	message := missedLogMessage
	eventType := models.EventReminderMissed
	if confirmed {
		status = models.StatusConfirmed
		message = confirmedLogMessage
		eventType = models.EventReminderConfirmed
	}

	now := c.now()
	entry := &models.ReminderLog{
		ReminderID:  &details.Reminder.ID,
		ElderlyID:   details.Elderly.ID,
		CaregiverID: details.Elderly.CaregiverID,
		Channel:     details.Schedule.Channel,
		Status:      status,
		Message:     &message,
	}
	if confirmed {
		entry.ConfirmedAt = &now
	}

	if _, err := c.store.RecordTransition(ctx, entry); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Persistence(err)
	}
	metrics.Confirmations.WithLabelValues(string(status)).Inc()
	logger.Log.Infof("Reminder %s marked %s", details.Reminder.ID, status)

	publish(ctx, c.events, models.ReminderEvent{
		Type:        eventType,
		ReminderID:  details.Reminder.ID,
		ElderlyID:   details.Elderly.ID,
		CaregiverID: details.Elderly.CaregiverID,
		Status:      status,
		Channel:     details.Schedule.Channel,
		OccurredAt:  now,
	})

	escalated := false
	if !confirmed {
		escalated = c.escalator.Escalate(ctx, details)
	}

	return &models.ConfirmResult{
		Success:   true,
		Status:    status,
		Escalated: escalated,
	}, nil
}
