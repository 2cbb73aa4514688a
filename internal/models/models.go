package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Profile represents a caregiver or admin account
type Profile struct {
	ID                           string            `json:"id" db:"id"`
	Username                     string            `json:"username" db:"username"`
	FullName                     string            `json:"full_name" db:"full_name"`
	PhoneNumber                  *string           `json:"phone_number" db:"phone_number"`
	BackupContact                *string           `json:"backup_contact" db:"backup_contact"`
	Relationship                 *RelationshipType `json:"relationship" db:"relationship"`
	EmploymentStatus             *string           `json:"employment_status" db:"employment_status"`
	EmergencyContact             *string           `json:"emergency_contact" db:"emergency_contact"`
	NotificationForwardingNumber *string           `json:"notification_forwarding_number" db:"notification_forwarding_number"`
	Role                         UserRole          `json:"role" db:"role"`
	CreatedAt                    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time         `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// ForwardingNumber returns the notification forwarding number, or "" when unset
func (p *Profile) ForwardingNumber() string {
	if p == nil || p.NotificationForwardingNumber == nil {
		return ""
	}
	return strings.TrimSpace(*p.NotificationForwardingNumber)
}

// Elderly represents a care recipient managed by a caregiver
type Elderly struct {
	ID                string    `json:"id" db:"id"`
	CaregiverID       string    `json:"caregiver_id" db:"caregiver_id"`
	FullName          string    `json:"full_name" db:"full_name"`
	Age               *int      `json:"age" db:"age"`
	PrimaryContact    *string   `json:"primary_contact" db:"primary_contact"`
	SecondaryContact  *string   `json:"secondary_contact" db:"secondary_contact"`
	MedicalConditions []string  `json:"medical_conditions" db:"medical_conditions"`
	Notes             *string   `json:"notes" db:"notes"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Primary returns the primary contact number, or "" when unset
func (e *Elderly) Primary() string {
	if e == nil || e.PrimaryContact == nil {
		return ""
	}
	return strings.TrimSpace(*e.PrimaryContact)
}

// Secondary returns the secondary contact number, or "" when unset
func (e *Elderly) Secondary() string {
	if e == nil || e.SecondaryContact == nil {
		return ""
	}
	return strings.TrimSpace(*e.SecondaryContact)
}

// Schedule is a recurring reminder configuration
type Schedule struct {
	ID           string          `json:"id" db:"id"`
	ElderlyID    string          `json:"elderly_id" db:"elderly_id"`
	Title        string          `json:"title" db:"title"`
	Description  *string         `json:"description" db:"description"`
	ScheduleType ScheduleType    `json:"schedule_type" db:"schedule_type"`
	Frequency    Frequency       `json:"frequency" db:"frequency"`
	TimeOfDay    string          `json:"time_of_day" db:"time_of_day"`
	DaysOfWeek   []int           `json:"days_of_week" db:"days_of_week"`
	CustomDates  []string        `json:"custom_dates" db:"custom_dates"`
	Channel      ReminderChannel `json:"channel" db:"channel"`
	Language     Language        `json:"language" db:"language"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// Normalize clears recurrence fields that do not apply to the schedule's frequency
func (s *Schedule) Normalize() {
	if s.Frequency != FrequencyWeekly {
		s.DaysOfWeek = nil
	}
	if s.Frequency != FrequencyCustom {
		s.CustomDates = nil
	}
	if len(s.TimeOfDay) == len("15:04:05") {
		s.TimeOfDay = s.TimeOfDay[:5]
	}
}

// Validate checks the schedule's enumerations and recurrence fields
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.ElderlyID) == "" {
		return fmt.Errorf("elderly_id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !s.ScheduleType.Valid() {
		return fmt.Errorf("invalid schedule_type %q", s.ScheduleType)
	}
	if !s.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", s.Frequency)
	}
	if !s.Channel.Valid() {
		return fmt.Errorf("invalid channel %q", s.Channel)
	}
	if !s.Language.Valid() {
		return fmt.Errorf("invalid language %q", s.Language)
	}
	if !timeOfDayPattern.MatchString(s.TimeOfDay) {
		return fmt.Errorf("time_of_day must be HH:MM, got %q", s.TimeOfDay)
	}
	for _, d := range s.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("days_of_week entries must be between 0 and 6, got %d", d)
		}
	}
	if s.Frequency == FrequencyWeekly && len(s.DaysOfWeek) == 0 {
		return fmt.Errorf("days_of_week is required for weekly schedules")
	}
	for _, d := range s.CustomDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("custom_dates entries must be YYYY-MM-DD, got %q", d)
		}
	}
	if s.Frequency == FrequencyCustom && len(s.CustomDates) == 0 {
		return fmt.Errorf("custom_dates is required for custom schedules")
	}
	return nil
}

// RenderMessage builds the default reminder text for the schedule's language
func (s *Schedule) RenderMessage() string {
	prefix := "Reminder"
	if s.Language == LanguageKiswahili {
		prefix = "Kumbusho"
	}
	description := ""
	if s.Description != nil {
		description = *s.Description
	}
	return fmt.Sprintf("%s: %s. %s", prefix, s.Title, description)
}

// Reminder is one concrete attempt at delivering a schedule's notification
type Reminder struct {
	ID            string         `json:"id" db:"id"`
	ScheduleID    string         `json:"schedule_id" db:"schedule_id"`
	ElderlyID     string         `json:"elderly_id" db:"elderly_id"`
	ScheduledTime time.Time      `json:"scheduled_time" db:"scheduled_time"`
	Status        ReminderStatus `json:"status" db:"status"`
	RetryCount    int            `json:"retry_count" db:"retry_count"`
	MaxRetries    int            `json:"max_retries" db:"max_retries"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// DefaultMaxRetries is persisted on every new reminder. No retry policy reads it.
const DefaultMaxRetries = 3

// ReminderDetails bundles a reminder with its elderly record and parent schedule
type ReminderDetails struct {
	Reminder Reminder `json:"reminder"`
	Elderly  Elderly  `json:"elderly"`
	Schedule Schedule `json:"schedule"`
}

// ReminderLog is an append-only record of one send attempt or status transition
type ReminderLog struct {
	ID           string          `json:"id" db:"id"`
	ReminderID   *string         `json:"reminder_id" db:"reminder_id"`
	ElderlyID    string          `json:"elderly_id" db:"elderly_id"`
	CaregiverID  string          `json:"caregiver_id" db:"caregiver_id"`
	Channel      ReminderChannel `json:"channel" db:"channel"`
	Status       ReminderStatus  `json:"status" db:"status"`
	Message      *string         `json:"message" db:"message"`
	ErrorMessage *string         `json:"error_message" db:"error_message"`
	SentAt       *time.Time      `json:"sent_at" db:"sent_at"`
	DeliveredAt  *time.Time      `json:"delivered_at" db:"delivered_at"`
	ConfirmedAt  *time.Time      `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// ReminderLogWithDetails is a log row joined with the names shown on the dashboard
type ReminderLogWithDetails struct {
	ReminderLog
	ElderlyName   string `json:"elderly_name"`
	CaregiverName string `json:"caregiver_name"`
}

// DashboardStats summarises today's reminder activity
type DashboardStats struct {
	TotalElderly            int `json:"total_elderly"`
	ActiveSchedules         int `json:"active_schedules"`
	PendingReminders        int `json:"pending_reminders"`
	MissedRemindersToday    int `json:"missed_reminders_today"`
	RemindersSentToday      int `json:"reminders_sent_today"`
	ConfirmedRemindersToday int `json:"confirmed_reminders_today"`
}

// StringPtr returns nil for blank strings and a pointer to s otherwise
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
