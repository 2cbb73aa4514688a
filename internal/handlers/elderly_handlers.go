package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type elderlyRequest struct {
	CaregiverID       string   `json:"caregiver_id"`
	FullName          string   `json:"full_name"`
	Age               *int     `json:"age"`
	PrimaryContact    string   `json:"primary_contact"`
	SecondaryContact  string   `json:"secondary_contact"`
	MedicalConditions []string `json:"medical_conditions"`
	Notes             string   `json:"notes"`
}

func (req elderlyRequest) validate() error {
	if strings.TrimSpace(req.FullName) == "" {
		return apperrors.InvalidRequest("full_name is required")
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return apperrors.InvalidRequest("age must be between 0 and 150")
	}
	return nil
}

func (req elderlyRequest) apply(e *models.Elderly) {
	e.FullName = strings.TrimSpace(req.FullName)
	e.Age = req.Age
	e.PrimaryContact = models.StringPtr(req.PrimaryContact)
	e.SecondaryContact = models.StringPtr(req.SecondaryContact)
	e.MedicalConditions = req.MedicalConditions
	e.Notes = models.StringPtr(req.Notes)
}

// ListElderly handles GET /api/v1/elderly. Admins may filter with ?caregiverId=.
func (h *CareHandler) ListElderly(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filter := models.ElderlyFilter{CaregiverID: scope(caller, r.URL.Query().Get("caregiverId"))}
	list, err := h.store.ListElderly(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetElderly handles GET /api/v1/elderly/{id}
func (h *CareHandler) GetElderly(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	elderly, err := h.ownedElderly(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elderly)
}

// CreateElderly handles POST /api/v1/elderly
func (h *CareHandler) CreateElderly(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req elderlyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	elderly := &models.Elderly{CaregiverID: caller.ID}
	if caller.IsAdmin() && req.CaregiverID != "" {
		elderly.CaregiverID = req.CaregiverID
	}
	req.apply(elderly)

	created, err := h.store.CreateElderly(r.Context(), elderly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateElderly handles PUT /api/v1/elderly/{id}
func (h *CareHandler) UpdateElderly(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	elderly, err := h.ownedElderly(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	var req elderlyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	req.apply(elderly)

	updated, err := h.store.UpdateElderly(r.Context(), elderly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteElderly handles DELETE /api/v1/elderly/{id}. Schedules and reminders go with it.
func (h *CareHandler) DeleteElderly(w http.ResponseWriter, r *http.Request) {
	caller, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	elderly, err := h.ownedElderly(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteElderly(r.Context(), elderly.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
