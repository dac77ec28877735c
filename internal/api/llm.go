package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"construct-chat/internal/llm"
	"construct-chat/internal/models"
	"construct-chat/internal/session"
)

// StatusChecker probes the configured inference backend
type StatusChecker interface {
	Status(ctx context.Context) (string, error)
}

// LLMHandler exposes the backend connection and sampler settings
type LLMHandler struct {
	session *session.Session
	status  StatusChecker
}

// NewLLMHandler creates a new LLM settings handler
func NewLLMHandler(sess *session.Session, status StatusChecker) *LLMHandler {
	return &LLMHandler{session: sess, status: status}
}

// SettingsBody is the wire form of the sampler settings
type SettingsBody struct {
	Settings     models.GenerationSettings `json:"settings"`
	StopBrackets *bool                     `json:"stopBrackets,omitempty"`
}

// GetConnection handles GET /api/llm/connection
func (h *LLMHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Connection())
}

// PutConnection handles PUT /api/llm/connection
func (h *LLMHandler) PutConnection(w http.ResponseWriter, r *http.Request) {
	var conn models.Connection
	if !decodeJSON(w, r, &conn) {
		return
	}
	if !conn.EndpointType.Valid() {
		http.Error(w, "Unknown endpoint type", http.StatusBadRequest)
		return
	}
	if err := h.session.SetConnection(conn); err != nil {
		http.Error(w, "Failed to save connection", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Connection())
}

// GetSettings handles GET /api/llm/settings
func (h *LLMHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, stopBrackets := h.session.GenerationSettings()
	writeJSON(w, http.StatusOK, SettingsBody{Settings: settings, StopBrackets: &stopBrackets})
}

// PutSettings handles PUT /api/llm/settings
func (h *LLMHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var body SettingsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.session.SetGenerationSettings(body.Settings, body.StopBrackets); err != nil {
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	h.GetSettings(w, r)
}

// Status handles GET /api/llm/status
func (h *LLMHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		http.Error(w, "Status check unavailable", http.StatusServiceUnavailable)
		return
	}
	status, err := h.status.Status(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	case errors.Is(err, llm.ErrStatusUnsupported):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, llm.ErrUnknownBackend), errors.Is(err, llm.ErrInvalidEndpoint):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Backend unreachable: "+err.Error(), http.StatusBadGateway)
	}
}
