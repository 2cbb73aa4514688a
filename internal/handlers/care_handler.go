package handlers

import (
	"context"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/auth"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// CareStore is the persistence surface behind the caregiver dashboard endpoints
type CareStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	UpdateProfileRole(ctx context.Context, id string, role models.UserRole) (*models.Profile, error)

	GetElderly(ctx context.Context, id string) (*models.Elderly, error)
	ListElderly(ctx context.Context, filter models.ElderlyFilter) ([]models.Elderly, error)
	CreateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error)
	UpdateElderly(ctx context.Context, e *models.Elderly) (*models.Elderly, error)
	DeleteElderly(ctx context.Context, id string) error

	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, s *models.Schedule) (*models.Schedule, error)
	SetScheduleActive(ctx context.Context, id string, active bool) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	ListReminders(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, error)
	ListReminderLogs(ctx context.Context, filter models.LogFilter) ([]models.ReminderLogWithDetails, error)
	DashboardStats(ctx context.Context, caregiverID string, since time.Time) (*models.DashboardStats, error)
}

// CareHandler serves profiles, elderly records, schedules and the activity views.
// Caregivers only see their own records; admins see everything.
type CareHandler struct {
	store CareStore
	now   func() time.Time
}

func NewCareHandler(store CareStore) *CareHandler {
	return &CareHandler{store: store, now: time.Now}
}

// currentProfile loads the caller's profile, creating a caregiver profile on first use
func (h *CareHandler) currentProfile(ctx context.Context) (*models.Profile, error) {
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil || claims.UserID == "" {
		return nil, apperrors.ErrForbidden
	}

	profile, err := h.store.GetProfile(ctx, claims.UserID)
	if err == nil {
		return profile, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, apperrors.Persistence(err)
	}

	username := claims.Username
	if username == "" {
		username = claims.UserID
	}
	created, err := h.store.CreateProfile(ctx, &models.Profile{
		ID:       claims.UserID,
		Username: username,
		FullName: username,
		Role:     models.RoleCaregiver,
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return created, nil
}

// ownedElderly loads an elderly record the caller may manage
func (h *CareHandler) ownedElderly(ctx context.Context, caller *models.Profile, id string) (*models.Elderly, error) {
	elderly, err := h.store.GetElderly(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && elderly.CaregiverID != caller.ID {
		return nil, apperrors.ErrForbidden
	}
	return elderly, nil
}

// ownedSchedule loads a schedule whose elderly record the caller may manage
func (h *CareHandler) ownedSchedule(ctx context.Context, caller *models.Profile, id string) (*models.Schedule, error) {
	schedule, err := h.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedElderly(ctx, caller, schedule.ElderlyID); err != nil {
		return nil, err
	}
	return schedule, nil
}

// scope returns the caregiver id listings are limited to; admins may pass requested or ""
func scope(caller *models.Profile, requested string) string {
	if caller.IsAdmin() {
		return requested
	}
	return caller.ID
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
