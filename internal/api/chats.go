package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"construct-chat/internal/db"
	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
)

// ChatHandler handles chat log requests
type ChatHandler struct {
	store        *db.Store
	orchestrator *orchestrator.Orchestrator
	surface      orchestrator.Surface
}

// NewChatHandler creates a new chat handler
func NewChatHandler(store *db.Store, orch *orchestrator.Orchestrator, broadcaster *EventBroadcaster) *ChatHandler {
	return &ChatHandler{
		store:        store,
		orchestrator: orch,
		surface:      broadcastSurface{broadcaster: broadcaster},
	}
}

// SendMessageRequest represents the request body for posting a message
type SendMessageRequest struct {
	UserID      string              `json:"userId"`
	UserName    string              `json:"userName"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments"`
}

// SendMessageResponse reports what the orchestrator did with the message
type SendMessageResponse struct {
	Outcome orchestrator.Outcome `json:"outcome"`
	Chat    *models.ChatLog      `json:"chat"`
}

// TextRequest addresses a message by its text
type TextRequest struct {
	Text string `json:"text"`
}

// List handles GET /api/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.Chats.All()
	if err != nil {
		storeError(w, "chats", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// Get handles GET /api/chats/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.store.GetChat(r.PathValue("id"))
	if err != nil {
		storeError(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Delete handles DELETE /api/chats/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveChat(r.PathValue("id")); err != nil {
		storeError(w, "chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /api/chats/{id}/messages. The request blocks
// until every reply has been generated.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")

	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "api-user"
	}

	outcome := h.orchestrator.HandleMessage(r.Context(), h.surface, orchestrator.InboundMessage{
		ID:          models.NewMessageID(),
		SurfaceID:   chatID,
		AuthorID:    req.UserID,
		AuthorName:  req.UserName,
		Text:        req.Text,
		Attachments: req.Attachments,
		Origin:      models.ChatTypeAPI,
	})
	log.Printf("[HTTP] Message handled chat_id=%s outcome=%s", chatID, outcome)

	writeJSON(w, http.StatusOK, SendMessageResponse{Outcome: outcome, Chat: h.loadChat(chatID)})
}

// Continue handles POST /api/chats/{id}/continue
func (h *ChatHandler) Continue(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")

	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome := h.orchestrator.Continue(r.Context(), h.surface, chatID, req.UserID, req.UserName)
	writeJSON(w, http.StatusOK, SendMessageResponse{Outcome: outcome, Chat: h.loadChat(chatID)})
}

// Regenerate handles POST /api/chats/{id}/regenerate
func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, ok := h.orchestrator.Regenerate(r.Context(), r.PathValue("id"), req.Text)
	if !ok {
		http.Error(w, "Message could not be regenerated", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, TextRequest{Text: text})
}

// Remove handles POST /api/chats/{id}/remove
func (h *ChatHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.orchestrator.Remove(r.PathValue("id"), req.Text) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) loadChat(chatID string) *models.ChatLog {
	chat, err := h.store.GetChat(chatID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("[HTTP] Failed to reload chat chat_id=%s err=%v", chatID, err)
		}
		return nil
	}
	return chat
}
