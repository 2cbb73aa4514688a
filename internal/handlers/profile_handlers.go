package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

// GetProfile handles GET /api/v1/profile
func (h *CareHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *CareHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.currentProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var update models.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, err)
		return
	}
	if update.FullName != nil && *update.FullName == "" {
		writeError(w, apperrors.InvalidRequest("full_name cannot be empty"))
		return
	}
	if update.Relationship != nil && *update.Relationship != "" && !update.Relationship.Valid() {
		writeError(w, apperrors.InvalidRequest("invalid relationship %q", *update.Relationship))
		return
	}
	update.Apply(profile)

	updated, err := h.store.UpdateProfile(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListProfiles handles GET /api/v1/admin/profiles
func (h *CareHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

type roleRequest struct {
	Role models.UserRole `json:"role"`
}

// UpdateProfileRole handles PUT /api/v1/admin/profiles/{id}/role
func (h *CareHandler) UpdateProfileRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.Role.Valid() {
		writeError(w, apperrors.InvalidRequest("invalid role %q", req.Role))
		return
	}

	profile, err := h.store.UpdateProfileRole(r.Context(), mux.Vars(r)["id"], req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
