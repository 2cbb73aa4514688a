package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/metrics"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// ProfileLookup resolves caregiver profiles
type ProfileLookup interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// Escalator alerts backup contacts when a reminder is missed. Alerts are best
// effort: failures are logged, counted and published, never returned.
type Escalator struct {
	sms      Sender
	profiles ProfileLookup
	events   EventPublisher
	now      func() time.Time
}

func NewEscalator(sms Sender, profiles ProfileLookup, events EventPublisher) *Escalator {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Escalator{sms: sms, profiles: profiles, events: events, now: time.Now}
}

// AlertMessage is the text sent to backup contacts
func AlertMessage(elderlyName, scheduleTitle string) string {
	return fmt.Sprintf("Alert: %s missed their reminder: %s. Please check on them.", elderlyName, scheduleTitle)
}

// Escalate alerts the secondary contact and then the caregiver's forwarding
// number, if set. It reports whether escalation applied, which is the case
// whenever the elderly record has a secondary contact.
func (e *Escalator) Escalate(ctx context.Context, details *models.ReminderDetails) bool {
	secondary := details.Elderly.Secondary()
	if secondary == "" {
		return false
	}

	alert := models.EscalationAlert{
		To:          secondary,
		ElderlyID:   details.Elderly.ID,
		ElderlyName: details.Elderly.FullName,
		CaregiverID: details.Elderly.CaregiverID,
		ReminderID:  details.Reminder.ID,
		Title:       details.Schedule.Title,
	}
	e.Notify(ctx, alert)

	caregiver, err := e.profiles.GetProfile(ctx, details.Elderly.CaregiverID)
	if err != nil {
		metrics.Escalations.WithLabelValues("error").Inc()
		logger.Log.Errorf("Escalation for reminder %s: could not load caregiver %s: %v",
			details.Reminder.ID, details.Elderly.CaregiverID, err)
		publish(ctx, e.events, models.ReminderEvent{
			Type:        models.EventEscalationFailed,
			ReminderID:  details.Reminder.ID,
			ElderlyID:   details.Elderly.ID,
			CaregiverID: details.Elderly.CaregiverID,
			Channel:     models.ChannelSMS,
			Error:       err.Error(),
			OccurredAt:  e.now(),
		})
		return true
	}
	if forward := caregiver.ForwardingNumber(); forward != "" {
		alert.To = forward
		e.Notify(ctx, alert)
	}
	return true
}

// Notify sends one alert through the SMS sender without a reminder id, so the
// log row stands on its own.
func (e *Escalator) Notify(ctx context.Context, alert models.EscalationAlert) {
	req := models.SendRequest{
		To:          alert.To,
		Message:     AlertMessage(alert.ElderlyName, alert.Title),
		ElderlyID:   alert.ElderlyID,
		CaregiverID: alert.CaregiverID,
	}

	event := models.ReminderEvent{
		Type:        models.EventEscalationSent,
		ReminderID:  alert.ReminderID,
		ElderlyID:   alert.ElderlyID,
		CaregiverID: alert.CaregiverID,
		Channel:     models.ChannelSMS,
		Target:      alert.To,
	}

	result, err := e.sms.Send(ctx, req)
	switch {
	case err != nil:
		metrics.Escalations.WithLabelValues("error").Inc()
		logger.Log.Errorf("Escalation SMS to %s for reminder %s failed: %v", alert.To, alert.ReminderID, err)
		event.Type = models.EventEscalationFailed
		event.Error = err.Error()
	case !result.Success:
		metrics.Escalations.WithLabelValues("failed").Inc()
		logger.Log.Warnf("Escalation SMS to %s for reminder %s was not accepted (%s)", alert.To, alert.ReminderID, result.Status)
		event.Type = models.EventEscalationFailed
		event.Status = result.Status
	default:
		metrics.Escalations.WithLabelValues("sent").Inc()
		logger.Log.Infof("Escalation SMS sent to %s for reminder %s", alert.To, alert.ReminderID)
		event.Status = result.Status
	}

	event.OccurredAt = e.now()
	publish(ctx, e.events, event)
}
