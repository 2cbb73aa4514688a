package handlers

import (
	"context"
	"net/http"

	"github.com/cjdreamy/M-kumbusha/internal/auth"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, req models.ConfirmRequest) (*models.ConfirmResult, error)
}

type Sender interface {
	Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error)
}

// ReminderHandler serves the reminder workflow endpoints
type ReminderHandler struct {
	dispatcher Dispatcher
	confirmer  Confirmer
	sms        Sender
	voice      Sender
}

func NewReminderHandler(dispatcher Dispatcher, confirmer Confirmer, sms, voice Sender) *ReminderHandler {
	return &ReminderHandler{
		dispatcher: dispatcher,
		confirmer:  confirmer,
		sms:        sms,
		voice:      voice,
	}
}

// SendReminder handles POST /api/v1/send-reminder
func (h *ReminderHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	var req models.DispatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CaregiverID == "" {
		req.CaregiverID, _ = auth.GetUserIDFromContext(r.Context())
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SendSMS handles POST /api/v1/send-sms
func (h *ReminderHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.sms)
}

// SendVoice handles POST /api/v1/send-voice
func (h *ReminderHandler) SendVoice(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.voice)
}

func (h *ReminderHandler) send(w http.ResponseWriter, r *http.Request, sender Sender) {
	var req models.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ReminderID != nil && *req.ReminderID == "" {
		req.ReminderID = nil
	}

	result, err := sender.Send(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConfirmReminder handles POST /api/v1/confirm-reminder
func (h *ReminderHandler) ConfirmReminder(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.confirmer.Confirm(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
