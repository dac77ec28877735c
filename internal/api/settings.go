package api

import (
	"net/http"
	"strings"

	"construct-chat/internal/imagegen"
	"construct-chat/internal/models"
	"construct-chat/internal/session"
)

// SettingsHandler serves conversation flags, registered channels and the
// Stable Diffusion passthrough
type SettingsHandler struct {
	session *session.Session
	images  *imagegen.Client
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(sess *session.Session, images *imagegen.Client) *SettingsHandler {
	if images == nil {
		images = imagegen.NewClient()
	}
	return &SettingsHandler{session: sess, images: images}
}

// RegisterChannelRequest represents the request body for registering a channel
type RegisterChannelRequest struct {
	ID      string `json:"id"`
	GuildID string `json:"guildId"`
}

// GetConversation handles GET /api/conversation/settings
func (h *SettingsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Conversation())
}

// PutConversation handles PUT /api/conversation/settings
func (h *SettingsHandler) PutConversation(w http.ResponseWriter, r *http.Request) {
	var conv session.ConversationSettings
	if !decodeJSON(w, r, &conv) {
		return
	}
	if conv.Mode == "" {
		conv.Mode = session.ModeCharacter
	}
	if err := h.session.SetConversation(conv); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Conversation())
}

// ListChannels handles GET /api/channels
func (h *SettingsHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Channels())
}

// RegisterChannel handles POST /api/channels
func (h *SettingsHandler) RegisterChannel(w http.ResponseWriter, r *http.Request) {
	var req RegisterChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		http.Error(w, "Channel id is required", http.StatusBadRequest)
		return
	}
	if err := h.session.RegisterChannel(req.ID, req.GuildID); err != nil {
		http.Error(w, "Failed to register channel", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, h.session.Channels())
}

// UnregisterChannel handles DELETE /api/channels/{id}
func (h *SettingsHandler) UnregisterChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.session.UnregisterChannel(r.PathValue("id")); err != nil {
		http.Error(w, "Failed to unregister channel", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAlias handles POST /api/channels/{id}/aliases
func (h *SettingsHandler) SetAlias(w http.ResponseWriter, r *http.Request) {
	var alias models.Alias
	if !decodeJSON(w, r, &alias) {
		return
	}
	if alias.UserID == "" {
		http.Error(w, "Alias id is required", http.StatusBadRequest)
		return
	}
	if err := h.session.SetAlias(r.PathValue("id"), "", alias); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Channels())
}

// GetImageSettings handles GET /api/sd/settings
func (h *SettingsHandler) GetImageSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.ImageSettings())
}

// PutImageSettings handles PUT /api/sd/settings
func (h *SettingsHandler) PutImageSettings(w http.ResponseWriter, r *http.Request) {
	var settings session.ImageSettings
	if !decodeJSON(w, r, &settings) {
		return
	}
	if err := h.session.SetImageSettings(settings); err != nil {
		http.Error(w, "Failed to save image settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.ImageSettings())
}

// Txt2Img handles POST /api/sd/txt2img
func (h *SettingsHandler) Txt2Img(w http.ResponseWriter, r *http.Request) {
	var req imagegen.Txt2ImgRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings := h.session.ImageSettings()
	resp, err := h.images.Txt2Img(r.Context(), settings.APIURL, settings.DefaultPrompt, req)
	if err != nil {
		http.Error(w, "Image generation failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
