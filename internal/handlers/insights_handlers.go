package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/insights"
)

type InsightsGenerator interface {
	CareInsights(ctx context.Context, data string) (string, error)
	VoiceScript(ctx context.Context, req insights.VoiceScriptRequest) (string, error)
	AssistantAdvice(ctx context.Context, question, profileInfo string) (string, error)
}

// InsightsHandler exposes the generative care helpers
type InsightsHandler struct {
	generator InsightsGenerator
}

func NewInsightsHandler(generator InsightsGenerator) *InsightsHandler {
	return &InsightsHandler{generator: generator}
}

type textResponse struct {
	Text string `json:"text"`
}

type careInsightsRequest struct {
	Data string `json:"data"`
}

type assistantRequest struct {
	Question    string `json:"question"`
	ProfileInfo string `json:"profileInfo"`
}

// CareInsights handles POST /api/v1/insights/care
func (h *InsightsHandler) CareInsights(w http.ResponseWriter, r *http.Request) {
	var req careInsightsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Data) == "" {
		writeError(w, apperrors.InvalidRequest("data is required"))
		return
	}
	h.respond(w, func() (string, error) { return h.generator.CareInsights(r.Context(), req.Data) })
}

// VoiceScript handles POST /api/v1/insights/voice-script
func (h *InsightsHandler) VoiceScript(w http.ResponseWriter, r *http.Request) {
	var req insights.VoiceScriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.ElderlyName) == "" || strings.TrimSpace(req.MedicationName) == "" {
		writeError(w, apperrors.InvalidRequest("elderlyName and medicationName are required"))
		return
	}
	h.respond(w, func() (string, error) { return h.generator.VoiceScript(r.Context(), req) })
}

// Assistant handles POST /api/v1/insights/assistant
func (h *InsightsHandler) Assistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, apperrors.InvalidRequest("question is required"))
		return
	}
	h.respond(w, func() (string, error) {
		return h.generator.AssistantAdvice(r.Context(), req.Question, req.ProfileInfo)
	})
}

func (h *InsightsHandler) respond(w http.ResponseWriter, generate func() (string, error)) {
	text, err := generate()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}
