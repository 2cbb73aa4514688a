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

// Dispatcher creates a reminder and sends it over the schedule's channels
type Dispatcher struct {
	store  Store
	sms    Sender
	voice  Sender
	events EventPublisher
	now    func() time.Time
}

func NewDispatcher(store Store, sms, voice Sender, events EventPublisher) *Dispatcher {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Dispatcher{store: store, sms: sms, voice: voice, events: events, now: time.Now}
}

// Dispatch sends a reminder now. The call succeeds once the reminder row
// exists, whatever the individual channels report; their outcomes are in
// the result and the reminder log.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error) {
	if strings.TrimSpace(req.ScheduleID) == "" || strings.TrimSpace(req.ElderlyID) == "" {
		return nil, apperrors.InvalidRequest("Missing required fields: scheduleId, elderlyId")
	}
	if req.Channel != "" && !req.Channel.Valid() {
		return nil, apperrors.InvalidRequest("unsupported channel %q", req.Channel)
	}
	if req.Language != "" && !req.Language.Valid() {
		return nil, apperrors.InvalidRequest("unsupported language %q", req.Language)
	}

	elderly, err := d.store.GetElderly(ctx, req.ElderlyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrRecipientNotFound
		}
		return nil, apperrors.Persistence(err)
	}
	to := elderly.Primary()
	if to == "" {
		return nil, apperrors.ErrRecipientNotFound
	}

	schedule, err := d.store.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, apperrors.Persistence(err)
	}
	if schedule.ElderlyID != elderly.ID {
		return nil, apperrors.InvalidRequest("schedule %s does not belong to elderly %s", schedule.ID, elderly.ID)
	}

	channel := req.Channel
	if channel == "" {
		channel = schedule.Channel
	}
	language := req.Language
	if language == "" {
		language = schedule.Language
	}
	message := req.Message
	if strings.TrimSpace(message) == "" {
		message = schedule.RenderMessage()
	}
	caregiverID := req.CaregiverID
	if caregiverID == "" {
		caregiverID = elderly.CaregiverID
	}

	reminder, err := d.store.CreateReminder(ctx, &models.Reminder{
		ScheduleID:    schedule.ID,
		ElderlyID:     elderly.ID,
		ScheduledTime: d.now(),
		Status:        models.StatusPending,
		MaxRetries:    models.DefaultMaxRetries,
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	metrics.RemindersDispatched.WithLabelValues(string(channel)).Inc()
	logger.Log.Infof("Dispatching reminder %s for %s over %s", reminder.ID, elderly.FullName, channel)

	send := models.SendRequest{
		To:          to,
		Message:     message,
		Language:    language,
		ElderlyID:   elderly.ID,
		CaregiverID: caregiverID,
		ReminderID:  &reminder.ID,
	}

	var results []models.ChannelResult
	if channel.IncludesSMS() {
		results = append(results, d.sendOne(ctx, models.ChannelSMS, d.sms, send))
	}
	if channel.IncludesVoice() {
		results = append(results, d.sendOne(ctx, models.ChannelVoice, d.voice, send))
	}

	publish(ctx, d.events, models.ReminderEvent{
		Type:        models.EventReminderDispatched,
		ReminderID:  reminder.ID,
		ElderlyID:   elderly.ID,
		CaregiverID: caregiverID,
		Channel:     channel,
		OccurredAt:  d.now(),
	})

	return &models.DispatchResult{
		Success:    true,
		ReminderID: reminder.ID,
		Results:    results,
		Message:    "Reminder sent successfully",
	}, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, ch models.ReminderChannel, sender Sender, req models.SendRequest) models.ChannelResult {
	result, err := sender.Send(ctx, req)
	if err != nil {
		logger.Log.Errorf("Reminder %s: %s send failed: %v", *req.ReminderID, ch, err)
		return models.ChannelResult{Type: ch, Success: false, Error: err.Error()}
	}
	return models.ChannelResult{
		Type:    ch,
		Success: result.Success,
		Status:  result.Status,
		Data:    result.Data,
	}
}
