package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// Memory is an in-process store with the same contract as Postgres.
// Deletes cascade the way the schema's foreign keys do.
type Memory struct {
	mu        sync.RWMutex
	profiles  map[string]models.Profile
	elderly   map[string]models.Elderly
	schedules map[string]models.Schedule
	reminders map[string]models.Reminder
	logs      []models.ReminderLog

	// Now is the clock used for timestamps
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		profiles:  make(map[string]models.Profile),
		elderly:   make(map[string]models.Elderly),
		schedules: make(map[string]models.Schedule),
		reminders: make(map[string]models.Reminder),
		Now:       time.Now,
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ---- profiles ----

func (m *Memory) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile %s", id)
	}
	return &p, nil
}

func (m *Memory) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := make([]models.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func (m *Memory) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.profiles[profile.ID]; ok {
		return &existing, nil
	}
	p := *profile
	if p.Role == "" {
		p.Role = models.RoleCaregiver
	}
	p.CreatedAt = m.Now()
	p.UpdatedAt = p.CreatedAt
	m.profiles[p.ID] = p
	return &p, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profile.ID]
	if !ok {
		return nil, apperrors.NotFound("profile %s", profile.ID)
	}
	p.FullName = profile.FullName
	p.PhoneNumber = profile.PhoneNumber
	p.BackupContact = profile.BackupContact
	p.Relationship = profile.Relationship
	p.EmploymentStatus = profile.EmploymentStatus
	p.EmergencyContact = profile.EmergencyContact
	p.NotificationForwardingNumber = profile.NotificationForwardingNumber
	p.UpdatedAt = m.Now()
	m.profiles[p.ID] = p
	return &p, nil
}

func (m *Memory) UpdateProfileRole(ctx context.Context, id string, role models.UserRole) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile %s", id)
	}
	p.Role = role
	p.UpdatedAt = m.Now()
	m.profiles[id] = p
	return &p, nil
}

// ---- elderly ----

func (m *Memory) GetElderly(ctx context.Context, id string) (*models.Elderly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elderly[id]
	if !ok {
		return nil, apperrors.NotFound("elderly %s", id)
	}
	return &e, nil
}

func (m *Memory) ListElderly(ctx context.Context, filter models.ElderlyFilter) ([]models.Elderly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := []models.Elderly{}
	for _, e := range m.elderly {
		if filter.CaregiverID != "" && e.CaregiverID != filter.CaregiverID {
			continue
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *Memory) CreateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[e.CaregiverID]; !ok {
		return nil, apperrors.Persistence(apperrors.NotFound("caregiver profile %s", e.CaregiverID))
	}
	created := *e
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.MedicalConditions == nil {
		created.MedicalConditions = []string{}
	}
	created.CreatedAt = m.Now()
	created.UpdatedAt = created.CreatedAt
	m.elderly[created.ID] = created
	return &created, nil
}

func (m *Memory) UpdateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.elderly[e.ID]
	if !ok {
		return nil, apperrors.NotFound("elderly %s", e.ID)
	}
	current.FullName = e.FullName
	current.Age = e.Age
	current.PrimaryContact = e.PrimaryContact
	current.SecondaryContact = e.SecondaryContact
	current.MedicalConditions = e.MedicalConditions
	if current.MedicalConditions == nil {
		current.MedicalConditions = []string{}
	}
	current.Notes = e.Notes
	current.UpdatedAt = m.Now()
	m.elderly[e.ID] = current
	return &current, nil
}

func (m *Memory) DeleteElderly(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elderly[id]; !ok {
		return apperrors.NotFound("elderly %s", id)
	}
	delete(m.elderly, id)
	for sid, s := range m.schedules {
		if s.ElderlyID == id {
			m.deleteScheduleLocked(sid)
		}
	}
	for rid, r := range m.reminders {
		if r.ElderlyID == id {
			m.deleteReminderLocked(rid)
		}
	}
	kept := m.logs[:0]
	for _, l := range m.logs {
		if l.ElderlyID != id {
			kept = append(kept, l)
		}
	}
	m.logs = kept
	return nil
}

// ---- schedules ----

func (m *Memory) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	return &s, nil
}

func (m *Memory) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := []models.Schedule{}
	for _, s := range m.schedules {
		if filter.ElderlyID != "" && s.ElderlyID != filter.ElderlyID {
			continue
		}
		if filter.CaregiverID != "" && m.elderly[s.ElderlyID].CaregiverID != filter.CaregiverID {
			continue
		}
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].TimeOfDay == list[j].TimeOfDay {
			return list[i].ID < list[j].ID
		}
		return list[i].TimeOfDay < list[j].TimeOfDay
	})
	return list, nil
}

func (m *Memory) CreateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elderly[s.ElderlyID]; !ok {
		return nil, apperrors.Persistence(apperrors.NotFound("elderly %s", s.ElderlyID))
	}
	created := *s
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = m.Now()
	created.UpdatedAt = created.CreatedAt
	m.schedules[created.ID] = created
	return &created, nil
}

func (m *Memory) UpdateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.schedules[s.ID]
	if !ok {
		return nil, apperrors.NotFound("schedule %s", s.ID)
	}
	updated := *s
	updated.ElderlyID = current.ElderlyID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = m.Now()
	m.schedules[s.ID] = updated
	return &updated, nil
}

func (m *Memory) SetScheduleActive(ctx context.Context, id string, active bool) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, apperrors.NotFound("schedule %s", id)
	}
	s.IsActive = active
	s.UpdatedAt = m.Now()
	m.schedules[id] = s
	return &s, nil
}

func (m *Memory) DeleteSchedule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return apperrors.NotFound("schedule %s", id)
	}
	m.deleteScheduleLocked(id)
	return nil
}

func (m *Memory) deleteScheduleLocked(id string) {
	delete(m.schedules, id)
	for rid, r := range m.reminders {
		if r.ScheduleID == id {
			m.deleteReminderLocked(rid)
		}
	}
}

// deleteReminderLocked mirrors ON DELETE SET NULL on reminder_logs
func (m *Memory) deleteReminderLocked(id string) {
	delete(m.reminders, id)
	for i := range m.logs {
		if m.logs[i].ReminderID != nil && *m.logs[i].ReminderID == id {
			m.logs[i].ReminderID = nil
		}
	}
}

// ---- reminders ----

func (m *Memory) CreateReminder(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[r.ScheduleID]; !ok {
		return nil, apperrors.Persistence(apperrors.NotFound("schedule %s", r.ScheduleID))
	}
	if _, ok := m.elderly[r.ElderlyID]; !ok {
		return nil, apperrors.Persistence(apperrors.NotFound("elderly %s", r.ElderlyID))
	}
	created := *r
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.Status == "" {
		created.Status = models.StatusPending
	}
	if created.MaxRetries == 0 {
		created.MaxRetries = models.DefaultMaxRetries
	}
	created.CreatedAt = m.Now()
	created.UpdatedAt = created.CreatedAt
	m.reminders[created.ID] = created
	return &created, nil
}

func (m *Memory) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, apperrors.ErrReminderNotFound
	}
	return &r, nil
}

func (m *Memory) GetReminderDetails(ctx context.Context, id string) (*models.ReminderDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, apperrors.ErrReminderNotFound
	}
	e, ok := m.elderly[r.ElderlyID]
	if !ok {
		return nil, apperrors.ErrReminderNotFound
	}
	s, ok := m.schedules[r.ScheduleID]
	if !ok {
		return nil, apperrors.ErrReminderNotFound
	}
	return &models.ReminderDetails{Reminder: r, Elderly: e, Schedule: s}, nil
}

func (m *Memory) ListReminders(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := []models.Reminder{}
	for _, r := range m.reminders {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.CaregiverID != "" && m.elderly[r.ElderlyID].CaregiverID != filter.CaregiverID {
			continue
		}
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.Before(list[j].ScheduledTime)
	})
	return list, nil
}

func (m *Memory) RecordTransition(ctx context.Context, entry *models.ReminderLog) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Persistence(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLogReferencesLocked(entry); err != nil {
		if errors.Is(err, apperrors.ErrReminderNotFound) {
			return false, err
		}
		return false, apperrors.Persistence(err)
	}

	applied := false
	if entry.ReminderID != nil {
		r := m.reminders[*entry.ReminderID]
		if models.CanTransition(r.Status, entry.Status) {
			r.Status = entry.Status
			r.UpdatedAt = m.Now()
			m.reminders[r.ID] = r
			applied = true
		} else {
			logger.Log.Warnf("Reminder %s stays %s, %s not allowed from current state", r.ID, r.Status, entry.Status)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = m.Now()
	m.logs = append(m.logs, *entry)
	return applied, nil
}

// CheckLogReferences reports whether the elderly record, caregiver profile and
// optional reminder named by entry exist
func (m *Memory) CheckLogReferences(ctx context.Context, entry *models.ReminderLog) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Persistence(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkLogReferencesLocked(entry)
}

func (m *Memory) checkLogReferencesLocked(entry *models.ReminderLog) error {
	if _, ok := m.elderly[entry.ElderlyID]; !ok {
		return apperrors.NotFound("elderly %s", entry.ElderlyID)
	}
	if _, ok := m.profiles[entry.CaregiverID]; !ok {
		return apperrors.NotFound("caregiver profile %s", entry.CaregiverID)
	}
	if entry.ReminderID != nil {
		if _, ok := m.reminders[*entry.ReminderID]; !ok {
			return apperrors.ErrReminderNotFound
		}
	}
	return nil
}

func (m *Memory) ListReminderLogs(ctx context.Context, filter models.LogFilter) ([]models.ReminderLogWithDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := clampLimit(filter.Limit)
	logs := []models.ReminderLogWithDetails{}
	for i := len(m.logs) - 1; i >= 0 && len(logs) < limit; i-- {
		l := m.logs[i]
		if filter.ElderlyID != "" && l.ElderlyID != filter.ElderlyID {
			continue
		}
		if filter.CaregiverID != "" && l.CaregiverID != filter.CaregiverID {
			continue
		}
		logs = append(logs, models.ReminderLogWithDetails{
			ReminderLog:   l,
			ElderlyName:   m.elderly[l.ElderlyID].FullName,
			CaregiverName: m.profiles[l.CaregiverID].FullName,
		})
	}
	return logs, nil
}

func (m *Memory) DashboardStats(ctx context.Context, caregiverID string, since time.Time) (*models.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := func(elderlyID string) bool {
		return caregiverID == "" || m.elderly[elderlyID].CaregiverID == caregiverID
	}

	var stats models.DashboardStats
	for _, e := range m.elderly {
		if caregiverID == "" || e.CaregiverID == caregiverID {
			stats.TotalElderly++
		}
	}
	for _, s := range m.schedules {
		if s.IsActive && owned(s.ElderlyID) {
			stats.ActiveSchedules++
		}
	}
	for _, r := range m.reminders {
		if r.Status == models.StatusPending && owned(r.ElderlyID) {
			stats.PendingReminders++
		}
	}
	for _, l := range m.logs {
		if l.CreatedAt.Before(since) || (caregiverID != "" && l.CaregiverID != caregiverID) {
			continue
		}
		switch l.Status {
		case models.StatusMissed:
			stats.MissedRemindersToday++
		case models.StatusSent, models.StatusDelivered:
			stats.RemindersSentToday++
		case models.StatusConfirmed:
			stats.ConfirmedRemindersToday++
		}
	}
	return &stats, nil
}
