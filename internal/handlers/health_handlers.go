package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints for readiness and liveness
type HealthHandler struct {
	startTime       time.Time
	readinessChecks map[string]func(ctx context.Context) error
	livenessChecks  map[string]func(ctx context.Context) error
}

// Health response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Details   map[string]string `json:"details,omitempty"`
}

const checkTimeout = 2 * time.Second

// NewHealthHandler creates a new health handler that checks store on readiness
func NewHealthHandler(store Pinger) *HealthHandler {
	h := &HealthHandler{
		startTime:       time.Now(),
		readinessChecks: make(map[string]func(ctx context.Context) error),
		livenessChecks:  make(map[string]func(ctx context.Context) error),
	}

	h.readinessChecks["store"] = store.Ping
	h.livenessChecks["uptime"] = func(ctx context.Context) error {
		return nil
	}
	return h
}

// AddReadinessCheck registers an extra dependency checked by /readyz
func (h *HealthHandler) AddReadinessCheck(name string, check func(ctx context.Context) error) {
	h.readinessChecks[name] = check
}

// HandleReadiness handles readiness requests
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.runChecks(w, r, h.readinessChecks, true)
}

// HandleLiveness handles liveness requests
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	h.runChecks(w, r, h.livenessChecks, false)
}

func (h *HealthHandler) runChecks(w http.ResponseWriter, r *http.Request, checks map[string]func(ctx context.Context) error, withDetails bool) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	details := make(map[string]string)
	allOk := true
	for name, check := range checks {
		if err := check(ctx); err != nil {
			allOk = false
			details[name] = err.Error()
		} else {
			details[name] = "OK"
		}
	}

	response := HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).String(),
	}
	if withDetails {
		response.Details = details
	}

	status := http.StatusOK
	if !allOk {
		response.Status = "DOWN"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Log.Errorf("Error encoding health response: %v", err)
	}
}

// HandleHealth handles general health check requests
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
