package models

import (
	"database/sql/driver"
	"fmt"
)

// ReminderChannel is the delivery medium configured on a schedule
type ReminderChannel string

const (
	ChannelSMS   ReminderChannel = "sms"
	ChannelVoice ReminderChannel = "voice"
	ChannelBoth  ReminderChannel = "both"
)

// Valid reports whether c is one of the known channels
func (c ReminderChannel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelVoice, ChannelBoth:
		return true
	}
	return false
}

// IncludesSMS reports whether the channel sends an SMS
func (c ReminderChannel) IncludesSMS() bool {
	return c == ChannelSMS || c == ChannelBoth
}

// IncludesVoice reports whether the channel places a voice call
func (c ReminderChannel) IncludesVoice() bool {
	return c == ChannelVoice || c == ChannelBoth
}

// Scan implements the sql.Scanner interface for ReminderChannel
func (c *ReminderChannel) Scan(value interface{}) error {
	s, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into ReminderChannel", value)
	}
	*c = ReminderChannel(s)
	return nil
}

// Value implements the driver.Valuer interface for ReminderChannel
func (c ReminderChannel) Value() (driver.Value, error) {
	return string(c), nil
}

// Language is the language a reminder is rendered in
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageKiswahili Language = "kiswahili"
)

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageKiswahili
}

// Scan implements the sql.Scanner interface for Language
func (l *Language) Scan(value interface{}) error {
	s, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Language", value)
	}
	*l = Language(s)
	return nil
}

// Value implements the driver.Valuer interface for Language
func (l Language) Value() (driver.Value, error) {
	return string(l), nil
}

// Frequency controls how often a schedule recurs
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Scan implements the sql.Scanner interface for Frequency
func (f *Frequency) Scan(value interface{}) error {
	s, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Frequency", value)
	}
	*f = Frequency(s)
	return nil
}

// Value implements the driver.Valuer interface for Frequency
func (f Frequency) Value() (driver.Value, error) {
	return string(f), nil
}

// ScheduleType is the kind of activity a schedule reminds about
type ScheduleType string

const (
	ScheduleMedication  ScheduleType = "medication"
	ScheduleExercise    ScheduleType = "exercise"
	ScheduleAppointment ScheduleType = "appointment"
	ScheduleCustom      ScheduleType = "custom"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleMedication, ScheduleExercise, ScheduleAppointment, ScheduleCustom:
		return true
	}
	return false
}

// Scan implements the sql.Scanner interface for ScheduleType
func (t *ScheduleType) Scan(value interface{}) error {
	s, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into ScheduleType", value)
	}
	*t = ScheduleType(s)
	return nil
}

// Value implements the driver.Valuer interface for ScheduleType
func (t ScheduleType) Value() (driver.Value, error) {
	return string(t), nil
}

// UserRole is the binary caregiver/admin role of a profile
type UserRole string

const (
	RoleCaregiver UserRole = "caregiver"
	RoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleCaregiver || r == RoleAdmin
}

// Scan implements the sql.Scanner interface for UserRole
func (r *UserRole) Scan(value interface{}) error {
	s, err := scanEnum(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into UserRole", value)
	}
	*r = UserRole(s)
	return nil
}

// Value implements the driver.Valuer interface for UserRole
func (r UserRole) Value() (driver.Value, error) {
	return string(r), nil
}

// RelationshipType describes how a caregiver relates to the people they look after
type RelationshipType string

const (
	RelationshipEmployedCaregiver RelationshipType = "employed_caregiver"
	RelationshipRelative          RelationshipType = "relative"
	RelationshipNextOfKin         RelationshipType = "next_of_kin"
	RelationshipFamilyMember      RelationshipType = "family_member"
	RelationshipFriend            RelationshipType = "friend"
	RelationshipOther             RelationshipType = "other"
)

func (r RelationshipType) Valid() bool {
	switch r {
	case RelationshipEmployedCaregiver, RelationshipRelative, RelationshipNextOfKin,
		RelationshipFamilyMember, RelationshipFriend, RelationshipOther:
		return true
	}
	return false
}

func scanEnum(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("unsupported type %T", value)
}
