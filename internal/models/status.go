package models

import (
	"database/sql/driver"
	"fmt"
)

// ReminderStatus is the lifecycle state of a reminder and of each log row
type ReminderStatus string

const (
	StatusPending ReminderStatus = "pending"
	StatusSent    ReminderStatus = "sent"
	// StatusDelivered is reserved for provider delivery reports; nothing sets it yet.
	StatusDelivered ReminderStatus = "delivered"
	StatusFailed    ReminderStatus = "failed"
	StatusConfirmed ReminderStatus = "confirmed"
	StatusMissed    ReminderStatus = "missed"
)

func (s ReminderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusConfirmed, StatusMissed:
		return true
	}
	return false
}

// Scan implements the sql.Scanner interface for ReminderStatus
func (s *ReminderStatus) Scan(value interface{}) error {
	v, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into ReminderStatus", value)
	}
	*s = ReminderStatus(v)
	return nil
}

// Value implements the driver.Valuer interface for ReminderStatus
func (s ReminderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// transitionSources lists, for each target status, the statuses a reminder may
// be in for the transition to apply.
//
// Channel outcomes move pending forward and may replace each other (the last
// channel of a "both" dispatch wins) but never overwrite a confirmation.
// Confirmations apply from any state, so a repeated confirm overwrites the
// previous answer.
var transitionSources = map[ReminderStatus][]ReminderStatus{
	StatusSent:      {StatusPending, StatusSent, StatusFailed},
	StatusFailed:    {StatusPending, StatusSent, StatusFailed},
	StatusDelivered: {StatusSent},
	StatusConfirmed: {StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusConfirmed, StatusMissed},
	StatusMissed:    {StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusConfirmed, StatusMissed},
}

// TransitionSources returns the statuses from which a reminder may move to target.
func TransitionSources(target ReminderStatus) []ReminderStatus {
	return transitionSources[target]
}

// CanTransition reports whether a reminder in status from may move to status to.
func CanTransition(from, to ReminderStatus) bool {
	for _, s := range transitionSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses for use with array query parameters.
func StatusStrings(statuses []ReminderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
