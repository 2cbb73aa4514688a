package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type scheduleRequest struct {
	ElderlyID    string                 `json:"elderly_id"`
	Title        string                 `json:"title"`
	Description  *string                `json:"description"`
	ScheduleType models.ScheduleType    `json:"schedule_type"`
	Frequency    models.Frequency       `json:"frequency"`
	TimeOfDay    string                 `json:"time_of_day"`
	DaysOfWeek   []int                  `json:"days_of_week"`
	CustomDates  []string               `json:"custom_dates"`
	Channel      models.ReminderChannel `json:"channel"`
	Language     models.Language        `json:"language"`
	IsActive     *bool                  `json:"is_active"`
}

// apply copies the set fields onto s
func (req scheduleRequest) apply(s *models.Schedule) {
	if req.Title != "" {
		s.Title = req.Title
	}
	if req.Description != nil {
		s.Description = models.StringPtr(*req.Description)
	}
	if req.ScheduleType != "" {
		s.ScheduleType = req.ScheduleType
	}
	if req.Frequency != "" {
		s.Frequency = req.Frequency
	}
	if req.TimeOfDay != "" {
		s.TimeOfDay = req.TimeOfDay
	}
	if req.DaysOfWeek != nil {
		s.DaysOfWeek = req.DaysOfWeek
	}
	if req.CustomDates != nil {
		s.CustomDates = req.CustomDates
	}
	if req.Channel != "" {
		s.Channel = req.Channel
	}
	if req.Language != "" {
		s.Language = req.Language
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
}

// ListSchedules handles GET /api/v1/schedules?elderlyId=&active=true
func (h *CareHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	filter := models.ScheduleFilter{
		ElderlyID:   query.Get("elderlyId"),
		CaregiverID: scope(caller, query.Get("caregiverId")),
		ActiveOnly:  query.Get("active") == "true",
	}
	list, err := h.store.ListSchedules(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSchedule handles GET /api/v1/schedules/{id}
func (h *CareHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	schedule, err := h.ownedSchedule(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// CreateSchedule handles POST /api/v1/schedules
func (h *CareHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ElderlyID == "" {
		writeError(w, apperrors.InvalidRequest("elderly_id is required"))
		return
	}
	if _, err := h.ownedElderly(r.Context(), caller, req.ElderlyID); err != nil {
		writeError(w, err)
		return
	}

	schedule := &models.Schedule{
		ElderlyID:    req.ElderlyID,
		ScheduleType: models.ScheduleMedication,
		Frequency:    models.FrequencyDaily,
		Channel:      models.ChannelSMS,
		Language:     models.LanguageEnglish,
		IsActive:     true,
	}
	req.apply(schedule)
	h.saveSchedule(w, r, schedule, http.StatusCreated, h.store.CreateSchedule)
}

// UpdateSchedule handles PUT /api/v1/schedules/{id}
func (h *CareHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	schedule, err := h.ownedSchedule(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.apply(schedule)
	h.saveSchedule(w, r, schedule, http.StatusOK, h.store.UpdateSchedule)
}

func (h *CareHandler) saveSchedule(w http.ResponseWriter, r *http.Request, schedule *models.Schedule, status int,
	save func(ctx context.Context, s *models.Schedule) (*models.Schedule, error)) {
	schedule.Normalize()
	if err := schedule.Validate(); err != nil {
		writeError(w, apperrors.InvalidRequest("%v", err))
		return
	}

	saved, err := save(r.Context(), schedule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, saved)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetScheduleActive handles PATCH /api/v1/schedules/{id}/active
func (h *CareHandler) SetScheduleActive(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsActive == nil {
		writeError(w, apperrors.InvalidRequest("is_active is required"))
		return
	}

	schedule, err := h.ownedSchedule(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.store.SetScheduleActive(r.Context(), schedule.ID, *req.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}
func (h *CareHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	schedule, err := h.ownedSchedule(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), schedule.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
