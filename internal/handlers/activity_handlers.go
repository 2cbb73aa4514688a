package handlers

import (
	"net/http"
	"strconv"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// ListReminders handles GET /api/v1/reminders?status=
func (h *CareHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	status := models.ReminderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, apperrors.InvalidRequest("invalid status %q", status))
		return
	}

	list, err := h.store.ListReminders(r.Context(), models.ReminderFilter{
		Status:      status,
		CaregiverID: scope(caller, r.URL.Query().Get("caregiverId")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListReminderLogs handles GET /api/v1/reminder-logs?elderlyId=&limit=
func (h *CareHandler) ListReminderLogs(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	filter := models.LogFilter{
		ElderlyID:   query.Get("elderlyId"),
		CaregiverID: scope(caller, query.Get("caregiverId")),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, apperrors.InvalidRequest("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	logs, err := h.store.ListReminderLogs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// DashboardStats handles GET /api/v1/dashboard/stats. "Today" starts at local midnight.
func (h *CareHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.store.DashboardStats(r.Context(), scope(caller, r.URL.Query().Get("caregiverId")), startOfDay(h.now()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
