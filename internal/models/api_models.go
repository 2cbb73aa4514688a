package models

import (
	"encoding/json"
	"time"
)

// DispatchRequest is the body of send-reminder and of queued dispatch jobs
type DispatchRequest struct {
	ScheduleID  string          `json:"scheduleId"`
	ElderlyID   string          `json:"elderlyId"`
	CaregiverID string          `json:"caregiverId"`
	Message     string          `json:"message"`
	Channel     ReminderChannel `json:"channel"`
	Language    Language        `json:"language"`
}

// DispatchResult is returned by send-reminder
type DispatchResult struct {
	Success    bool            `json:"success"`
	ReminderID string          `json:"reminderId"`
	Results    []ChannelResult `json:"results"`
	Message    string          `json:"message"`
}

// ChannelResult records what happened on one channel of a dispatch
type ChannelResult struct {
	Type    ReminderChannel `json:"type"`
	Success bool            `json:"success"`
	Status  ReminderStatus  `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SendRequest is the body of send-sms and send-voice
type SendRequest struct {
	To          string   `json:"to"`
	Message     string   `json:"message"`
	Language    Language `json:"language,omitempty"`
	ElderlyID   string   `json:"elderlyId"`
	CaregiverID string   `json:"caregiverId"`
	ReminderID  *string  `json:"reminderId,omitempty"`
}

// SendResult is returned by send-sms and send-voice
type SendResult struct {
	Success bool            `json:"success"`
	Status  ReminderStatus  `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// ConfirmRequest is the body of confirm-reminder and of confirmation stream messages
type ConfirmRequest struct {
	ReminderID string `json:"reminderId"`
	Confirmed  *bool  `json:"confirmed"`
}

// ConfirmResult is returned by confirm-reminder
type ConfirmResult struct {
	Success   bool           `json:"success"`
	Status    ReminderStatus `json:"status"`
	Escalated bool           `json:"escalated"`
}

// EscalationAlert is one best-effort alert to a backup contact
type EscalationAlert struct {
	To          string `json:"to"`
	ElderlyID   string `json:"elderlyId"`
	ElderlyName string `json:"elderlyName"`
	CaregiverID string `json:"caregiverId"`
	ReminderID  string `json:"reminderId"`
	Title       string `json:"title"`
}

// ReminderEventType names the events published on the reminder stream
type ReminderEventType string

const (
	EventReminderDispatched ReminderEventType = "reminder.dispatched"
	EventReminderConfirmed  ReminderEventType = "reminder.confirmed"
	EventReminderMissed     ReminderEventType = "reminder.missed"
	EventEscalationSent     ReminderEventType = "reminder.escalation_sent"
	EventEscalationFailed   ReminderEventType = "reminder.escalation_failed"
)

// ReminderEvent is published to the reminder event stream
type ReminderEvent struct {
	Type        ReminderEventType `json:"type"`
	ReminderID  string            `json:"reminderId,omitempty"`
	ElderlyID   string            `json:"elderlyId"`
	CaregiverID string            `json:"caregiverId,omitempty"`
	Status      ReminderStatus    `json:"status,omitempty"`
	Channel     ReminderChannel   `json:"channel,omitempty"`
	Target      string            `json:"target,omitempty"`
	Error       string            `json:"error,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// ProfileUpdate carries the editable profile fields
type ProfileUpdate struct {
	FullName                     *string           `json:"full_name"`
	PhoneNumber                  *string           `json:"phone_number"`
	BackupContact                *string           `json:"backup_contact"`
	Relationship                 *RelationshipType `json:"relationship"`
	EmploymentStatus             *string           `json:"employment_status"`
	EmergencyContact             *string           `json:"emergency_contact"`
	NotificationForwardingNumber *string           `json:"notification_forwarding_number"`
}

// Apply copies the set fields of u onto p. Blank optional values clear the field.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = StringPtr(*u.PhoneNumber)
	}
	if u.BackupContact != nil {
		p.BackupContact = StringPtr(*u.BackupContact)
	}
	if u.Relationship != nil {
		if *u.Relationship == "" {
			p.Relationship = nil
		} else {
			r := *u.Relationship
			p.Relationship = &r
		}
	}
	if u.EmploymentStatus != nil {
		p.EmploymentStatus = StringPtr(*u.EmploymentStatus)
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = StringPtr(*u.EmergencyContact)
	}
	if u.NotificationForwardingNumber != nil {
		p.NotificationForwardingNumber = StringPtr(*u.NotificationForwardingNumber)
	}
}

// LogFilter narrows reminder log listings
type LogFilter struct {
	ElderlyID   string
	CaregiverID string
	Limit       int
}

// ElderlyFilter narrows elderly listings
type ElderlyFilter struct {
	CaregiverID string
}

// ScheduleFilter narrows schedule listings
type ScheduleFilter struct {
	ElderlyID   string
	CaregiverID string
	ActiveOnly  bool
}

// ReminderFilter narrows reminder listings
type ReminderFilter struct {
	Status      ReminderStatus
	CaregiverID string
}
