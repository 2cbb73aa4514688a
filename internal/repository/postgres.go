package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// Postgres is the relational store backed by lib/pq
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// validID reports whether id can be compared against a UUID column
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ---- profiles ----

const profileColumns = `id, username, full_name, phone_number, backup_contact, relationship,
	employment_status, emergency_contact, notification_forwarding_number, role, created_at, updated_at`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.PhoneNumber,
		&p.BackupContact,
		&p.Relationship,
		&p.EmploymentStatus,
		&p.EmergencyContact,
		&p.NotificationForwardingNumber,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Postgres) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	profile, err := scanProfile(p.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("profile %s", id)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get profile: %w", err))
	}
	return profile, nil
}

func (p *Postgres) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list profiles: %w", err))
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("scan profile: %w", err))
		}
		profiles = append(profiles, *profile)
	}
	return profiles, wrapRowsErr(rows)
}

// CreateProfile inserts a profile, leaving an existing one with the same id untouched
func (p *Postgres) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile.Role == "" {
		profile.Role = models.RoleCaregiver
	}
	query := `
		INSERT INTO profiles (id, username, full_name, phone_number, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + profileColumns
	created, err := scanProfile(p.DB.QueryRowContext(ctx, query,
		profile.ID, profile.Username, profile.FullName, profile.PhoneNumber, profile.Role))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create profile: %w", err))
	}
	return created, nil
}

// UpdateProfile writes the editable fields. Username and role are not touched.
func (p *Postgres) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		UPDATE profiles SET
			full_name = $2,
			phone_number = $3,
			backup_contact = $4,
			relationship = $5,
			employment_status = $6,
			emergency_contact = $7,
			notification_forwarding_number = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns
	updated, err := scanProfile(p.DB.QueryRowContext(ctx, query,
		profile.ID,
		profile.FullName,
		profile.PhoneNumber,
		profile.BackupContact,
		profile.Relationship,
		profile.EmploymentStatus,
		profile.EmergencyContact,
		profile.NotificationForwardingNumber,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("profile %s", profile.ID)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("update profile: %w", err))
	}
	return updated, nil
}

func (p *Postgres) UpdateProfileRole(ctx context.Context, id string, role models.UserRole) (*models.Profile, error) {
	query := `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	updated, err := scanProfile(p.DB.QueryRowContext(ctx, query, id, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("profile %s", id)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("update profile role: %w", err))
	}
	return updated, nil
}

// ---- elderly ----

const elderlyColumns = `e.id, e.caregiver_id, e.full_name, e.age, e.primary_contact, e.secondary_contact,
	e.medical_conditions, e.notes, e.created_at, e.updated_at`

func scanElderly(row rowScanner) (*models.Elderly, error) {
	var e models.Elderly
	err := row.Scan(
		&e.ID,
		&e.CaregiverID,
		&e.FullName,
		&e.Age,
		&e.PrimaryContact,
		&e.SecondaryContact,
		pq.Array(&e.MedicalConditions),
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *Postgres) GetElderly(ctx context.Context, id string) (*models.Elderly, error) {
	if !validID(id) {
		return nil, apperrors.NotFound("elderly %s", id)
	}
	query := `SELECT ` + elderlyColumns + ` FROM elderly e WHERE e.id = $1`
	elderly, err := scanElderly(p.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("elderly %s", id)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get elderly: %w", err))
	}
	return elderly, nil
}

func (p *Postgres) ListElderly(ctx context.Context, filter models.ElderlyFilter) ([]models.Elderly, error) {
	query := `SELECT ` + elderlyColumns + ` FROM elderly e
		WHERE ($1 = '' OR e.caregiver_id = $1)
		ORDER BY e.created_at DESC`
	rows, err := p.DB.QueryContext(ctx, query, filter.CaregiverID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list elderly: %w", err))
	}
	defer rows.Close()

	list := []models.Elderly{}
	for rows.Next() {
		e, err := scanElderly(rows)
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("scan elderly: %w", err))
		}
		list = append(list, *e)
	}
	return list, wrapRowsErr(rows)
}

func (p *Postgres) CreateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO elderly AS e (id, caregiver_id, full_name, age, primary_contact, secondary_contact, medical_conditions, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + elderlyColumns
	created, err := scanElderly(p.DB.QueryRowContext(ctx, query,
		e.ID, e.CaregiverID, e.FullName, e.Age, e.PrimaryContact, e.SecondaryContact,
		pq.Array(nonNilStrings(e.MedicalConditions)), e.Notes))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create elderly: %w", err))
	}
	return created, nil
}

func (p *Postgres) UpdateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error) {
	if !validID(e.ID) {
		return nil, apperrors.NotFound("elderly %s", e.ID)
	}
	query := `
		UPDATE elderly e SET
			full_name = $2,
			age = $3,
			primary_contact = $4,
			secondary_contact = $5,
			medical_conditions = $6,
			notes = $7,
			updated_at = NOW()
		WHERE e.id = $1
		RETURNING ` + elderlyColumns
	updated, err := scanElderly(p.DB.QueryRowContext(ctx, query,
		e.ID, e.FullName, e.Age, e.PrimaryContact, e.SecondaryContact,
		pq.Array(nonNilStrings(e.MedicalConditions)), e.Notes))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("elderly %s", e.ID)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("update elderly: %w", err))
	}
	return updated, nil
}

func (p *Postgres) DeleteElderly(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NotFound("elderly %s", id)
	}
	return p.deleteByID(ctx, `DELETE FROM elderly WHERE id = $1`, "elderly", id)
}

// ---- schedules ----

const scheduleColumns = `s.id, s.elderly_id, s.title, s.description, s.schedule_type, s.frequency,
	to_char(s.time_of_day, 'HH24:MI'), s.days_of_week, s.custom_dates::text[], s.channel, s.language,
	s.is_active, s.created_at, s.updated_at`

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		s    models.Schedule
		days pq.Int64Array
	)
	err := row.Scan(
		&s.ID,
		&s.ElderlyID,
		&s.Title,
		&s.Description,
		&s.ScheduleType,
		&s.Frequency,
		&s.TimeOfDay,
		&days,
		pq.Array(&s.CustomDates),
		&s.Channel,
		&s.Language,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		s.DaysOfWeek = append(s.DaysOfWeek, int(d))
	}
	return &s, nil
}

func daysArray(days []int) interface{} {
	if days == nil {
		return pq.Int64Array(nil)
	}
	out := make(pq.Int64Array, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func datesArray(dates []string) interface{} {
	if dates == nil {
		return pq.StringArray(nil)
	}
	return pq.StringArray(dates)
}

func (p *Postgres) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	if !validID(id) {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	query := `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.id = $1`
	schedule, err := scanSchedule(p.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get schedule: %w", err))
	}
	return schedule, nil
}

func (p *Postgres) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ElderlyID != "" {
		if !validID(filter.ElderlyID) {
			return []models.Schedule{}, nil
		}
		args = append(args, filter.ElderlyID)
		conditions = append(conditions, fmt.Sprintf("s.elderly_id = $%d", len(args)))
	}
	if filter.CaregiverID != "" {
		args = append(args, filter.CaregiverID)
		conditions = append(conditions, fmt.Sprintf("e.caregiver_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "s.is_active")
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules s JOIN elderly e ON e.id = s.elderly_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.time_of_day ASC"

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list schedules: %w", err))
	}
	defer rows.Close()

	schedules := []models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("scan schedule: %w", err))
		}
		schedules = append(schedules, *s)
	}
	return schedules, wrapRowsErr(rows)
}

func (p *Postgres) CreateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `
		INSERT INTO schedules AS s (id, elderly_id, title, description, schedule_type, frequency, time_of_day,
			days_of_week, custom_dates, channel, language, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + scheduleColumns
	created, err := scanSchedule(p.DB.QueryRowContext(ctx, query,
		s.ID, s.ElderlyID, s.Title, s.Description, s.ScheduleType, s.Frequency, s.TimeOfDay,
		daysArray(s.DaysOfWeek), datesArray(s.CustomDates), s.Channel, s.Language, s.IsActive))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create schedule: %w", err))
	}
	return created, nil
}

func (p *Postgres) UpdateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	if !validID(s.ID) {
		return nil, apperrors.NotFound("schedule %s", s.ID)
	}
	query := `
		UPDATE schedules s SET
			title = $2,
			description = $3,
			schedule_type = $4,
			frequency = $5,
			time_of_day = $6,
			days_of_week = $7,
			custom_dates = $8,
			channel = $9,
			language = $10,
			is_active = $11,
			updated_at = NOW()
		WHERE s.id = $1
		RETURNING ` + scheduleColumns
	updated, err := scanSchedule(p.DB.QueryRowContext(ctx, query,
		s.ID, s.Title, s.Description, s.ScheduleType, s.Frequency, s.TimeOfDay,
		daysArray(s.DaysOfWeek), datesArray(s.CustomDates), s.Channel, s.Language, s.IsActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule %s", s.ID)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("update schedule: %w", err))
	}
	return updated, nil
}

func (p *Postgres) SetScheduleActive(ctx context.Context, id string, active bool) (*models.Schedule, error) {
	if !validID(id) {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	query := `UPDATE schedules s SET is_active = $2, updated_at = NOW() WHERE s.id = $1 RETURNING ` + scheduleColumns
	updated, err := scanSchedule(p.DB.QueryRowContext(ctx, query, id, active))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("toggle schedule: %w", err))
	}
	return updated, nil
}

func (p *Postgres) DeleteSchedule(ctx context.Context, id string) error {
	if !validID(id) {
		return apperrors.NotFound("schedule %s", id)
	}
	return p.deleteByID(ctx, `DELETE FROM schedules WHERE id = $1`, "schedule", id)
}

// ---- reminders ----

const reminderColumns = `r.id, r.schedule_id, r.elderly_id, r.scheduled_time, r.status,
	r.retry_count, r.max_retries, r.created_at, r.updated_at`

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var r models.Reminder
	err := row.Scan(
		&r.ID,
		&r.ScheduleID,
		&r.ElderlyID,
		&r.ScheduledTime,
		&r.Status,
		&r.RetryCount,
		&r.MaxRetries,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Postgres) CreateReminder(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = models.DefaultMaxRetries
	}
	query := `
		INSERT INTO reminders AS r (id, schedule_id, elderly_id, scheduled_time, status, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reminderColumns
	created, err := scanReminder(p.DB.QueryRowContext(ctx, query,
		r.ID, r.ScheduleID, r.ElderlyID, r.ScheduledTime, r.Status, r.RetryCount, r.MaxRetries))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create reminder: %w", err))
	}
	return created, nil
}

func (p *Postgres) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	if !validID(id) {
		return nil, apperrors.ErrReminderNotFound
	}
	query := `SELECT ` + reminderColumns + ` FROM reminders r WHERE r.id = $1`
	reminder, err := scanReminder(p.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrReminderNotFound
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get reminder: %w", err))
	}
	return reminder, nil
}

// GetReminderDetails loads a reminder with its elderly record and parent schedule
func (p *Postgres) GetReminderDetails(ctx context.Context, id string) (*models.ReminderDetails, error) {
	reminder, err := p.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	elderly, err := p.GetElderly(ctx, reminder.ElderlyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, err
	}
	schedule, err := p.GetSchedule(ctx, reminder.ScheduleID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, err
	}
	return &models.ReminderDetails{Reminder: *reminder, Elderly: *elderly, Schedule: *schedule}, nil
}

func (p *Postgres) ListReminders(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders r JOIN elderly e ON e.id = r.elderly_id
		WHERE ($1 = '' OR r.status = $1) AND ($2 = '' OR e.caregiver_id = $2)
		ORDER BY r.scheduled_time ASC`
	rows, err := p.DB.QueryContext(ctx, query, string(filter.Status), filter.CaregiverID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list reminders: %w", err))
	}
	defer rows.Close()

	reminders := []models.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("scan reminder: %w", err))
		}
		reminders = append(reminders, *r)
	}
	return reminders, wrapRowsErr(rows)
}

// RecordTransition appends entry to the reminder log and, when entry names a
// reminder, moves that reminder to entry.Status in the same transaction. The
// status is left alone when the transition is not allowed from the current
// state; the returned flag reports whether it was applied.
func (p *Postgres) RecordTransition(ctx context.Context, entry *models.ReminderLog) (bool, error) {
	if entry.ReminderID != nil && !validID(*entry.ReminderID) {
		return false, apperrors.ErrReminderNotFound
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.Persistence(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Log.Warnf("Rollback failed: %v", err)
		}
	}()

	applied := false
	if entry.ReminderID != nil {
		var current models.ReminderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM reminders WHERE id = $1 FOR UPDATE`, *entry.ReminderID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperrors.ErrReminderNotFound
		}
		if err != nil {
			return false, apperrors.Persistence(fmt.Errorf("lock reminder: %w", err))
		}

		if models.CanTransition(current, entry.Status) {
			_, err = tx.ExecContext(ctx,
				`UPDATE reminders SET status = $2, updated_at = NOW() WHERE id = $1`,
				*entry.ReminderID, entry.Status)
			if err != nil {
				return false, apperrors.Persistence(fmt.Errorf("update reminder status: %w", err))
			}
			applied = true
		} else {
			logger.Log.Warnf("Reminder %s stays %s, %s not allowed from current state", *entry.ReminderID, current, entry.Status)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO reminder_logs (id, reminder_id, elderly_id, caregiver_id, channel, status, message,
			error_message, sent_at, delivered_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		entry.ID, entry.ReminderID, entry.ElderlyID, entry.CaregiverID, entry.Channel, entry.Status,
		entry.Message, entry.ErrorMessage, entry.SentAt, entry.DeliveredAt, entry.ConfirmedAt,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return false, apperrors.Persistence(fmt.Errorf("insert reminder log: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.Persistence(fmt.Errorf("commit transition: %w", err))
	}
	return applied, nil
}

// CheckLogReferences reports whether the elderly record, caregiver profile and
// optional reminder named by entry exist
func (p *Postgres) CheckLogReferences(ctx context.Context, entry *models.ReminderLog) error {
	if !validID(entry.ElderlyID) {
		return apperrors.NotFound("elderly %s", entry.ElderlyID)
	}
	reminderID := ""
	if entry.ReminderID != nil {
		if !validID(*entry.ReminderID) {
			return apperrors.ErrReminderNotFound
		}
		reminderID = *entry.ReminderID
	}

	var elderlyFound, caregiverFound, reminderFound bool
	err := p.DB.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM elderly WHERE id = $1),
			EXISTS (SELECT 1 FROM profiles WHERE id = $2),
			$3 = '' OR EXISTS (SELECT 1 FROM reminders WHERE id::text = $3)`,
		entry.ElderlyID, entry.CaregiverID, reminderID,
	).Scan(&elderlyFound, &caregiverFound, &reminderFound)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("check log references: %w", err))
	}

	switch {
	case !elderlyFound:
		return apperrors.NotFound("elderly %s", entry.ElderlyID)
	case !caregiverFound:
		return apperrors.NotFound("caregiver profile %s", entry.CaregiverID)
	case !reminderFound:
		return apperrors.ErrReminderNotFound
	}
	return nil
}

// ListReminderLogs returns log rows newest first, joined with elderly and caregiver names
func (p *Postgres) ListReminderLogs(ctx context.Context, filter models.LogFilter) ([]models.ReminderLogWithDetails, error) {
	query := `
		SELECT l.id, l.reminder_id, l.elderly_id, l.caregiver_id, l.channel, l.status, l.message,
			l.error_message, l.sent_at, l.delivered_at, l.confirmed_at, l.created_at,
			COALESCE(e.full_name, ''), COALESCE(pr.full_name, '')
		FROM reminder_logs l
		LEFT JOIN elderly e ON e.id = l.elderly_id
		LEFT JOIN profiles pr ON pr.id = l.caregiver_id
		WHERE ($1 = '' OR l.elderly_id::text = $1) AND ($2 = '' OR l.caregiver_id = $2)
		ORDER BY l.created_at DESC
		LIMIT $3`
	rows, err := p.DB.QueryContext(ctx, query, filter.ElderlyID, filter.CaregiverID, clampLimit(filter.Limit))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list reminder logs: %w", err))
	}
	defer rows.Close()

	logs := []models.ReminderLogWithDetails{}
	for rows.Next() {
		var l models.ReminderLogWithDetails
		err := rows.Scan(
			&l.ID,
			&l.ReminderID,
			&l.ElderlyID,
			&l.CaregiverID,
			&l.Channel,
			&l.Status,
			&l.Message,
			&l.ErrorMessage,
			&l.SentAt,
			&l.DeliveredAt,
			&l.ConfirmedAt,
			&l.CreatedAt,
			&l.ElderlyName,
			&l.CaregiverName,
		)
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("scan reminder log: %w", err))
		}
		logs = append(logs, l)
	}
	return logs, wrapRowsErr(rows)
}

// DashboardStats counts records for caregiverID, or for everyone when it is empty.
// Log based counters only include rows created at or after since.
func (p *Postgres) DashboardStats(ctx context.Context, caregiverID string, since time.Time) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM elderly e WHERE ($1 = '' OR e.caregiver_id = $1)),
			(SELECT COUNT(*) FROM schedules s JOIN elderly e ON e.id = s.elderly_id
				WHERE s.is_active AND ($1 = '' OR e.caregiver_id = $1)),
			(SELECT COUNT(*) FROM reminders r JOIN elderly e ON e.id = r.elderly_id
				WHERE r.status = 'pending' AND ($1 = '' OR e.caregiver_id = $1)),
			(SELECT COUNT(*) FROM reminder_logs l
				WHERE l.status = 'missed' AND l.created_at >= $2 AND ($1 = '' OR l.caregiver_id = $1)),
			(SELECT COUNT(*) FROM reminder_logs l
				WHERE l.status IN ('sent', 'delivered') AND l.created_at >= $2 AND ($1 = '' OR l.caregiver_id = $1)),
			(SELECT COUNT(*) FROM reminder_logs l
				WHERE l.status = 'confirmed' AND l.created_at >= $2 AND ($1 = '' OR l.caregiver_id = $1))`

	var stats models.DashboardStats
	err := p.DB.QueryRowContext(ctx, query, caregiverID, since).Scan(
		&stats.TotalElderly,
		&stats.ActiveSchedules,
		&stats.PendingReminders,
		&stats.MissedRemindersToday,
		&stats.RemindersSentToday,
		&stats.ConfirmedRemindersToday,
	)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("dashboard stats: %w", err))
	}
	return &stats, nil
}

func (p *Postgres) deleteByID(ctx context.Context, query, what, id string) error {
	res, err := p.DB.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("delete %s: %w", what, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("delete %s: %w", what, err))
	}
	if n == 0 {
		return apperrors.NotFound("%s %s", what, id)
	}
	return nil
}

func wrapRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLogLimit
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
