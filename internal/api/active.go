package api

import (
	"context"
	"net/http"

	"construct-chat/internal/db"
	"construct-chat/internal/session"
)

// PrimarySetter promotes a construct to primary. The Discord bot implements
// it to mirror the nickname as well.
type PrimarySetter interface {
	SetPrimary(ctx context.Context, id string) error
}

type sessionPrimary struct {
	session *session.Session
}

func (p sessionPrimary) SetPrimary(_ context.Context, id string) error {
	return p.session.SetPrimary(id)
}

// ActiveHandler manages the active construct list
type ActiveHandler struct {
	session *session.Session
	store   *db.Store
	primary PrimarySetter
}

// NewActiveHandler creates a new active list handler
func NewActiveHandler(sess *session.Session, store *db.Store, primary PrimarySetter) *ActiveHandler {
	if primary == nil {
		primary = sessionPrimary{session: sess}
	}
	return &ActiveHandler{session: sess, store: store, primary: primary}
}

// List handles GET /api/active
func (h *ActiveHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.ActiveConstructs())
}

// Clear handles DELETE /api/active
func (h *ActiveHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearActive(); err != nil {
		http.Error(w, "Failed to clear active constructs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.ActiveConstructs())
}

// Add handles POST /api/active/{id}
func (h *ActiveHandler) Add(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.GetConstruct(id); err != nil {
		storeError(w, "construct", err)
		return
	}
	if err := h.session.AddActive(id); err != nil {
		http.Error(w, "Failed to activate construct", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.ActiveConstructs())
}

// Remove handles DELETE /api/active/{id}
func (h *ActiveHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveActive(r.PathValue("id")); err != nil {
		http.Error(w, "Failed to deactivate construct", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.ActiveConstructs())
}

// SetPrimary handles POST /api/active/{id}/primary
func (h *ActiveHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.GetConstruct(id); err != nil {
		storeError(w, "construct", err)
		return
	}
	if err := h.primary.SetPrimary(r.Context(), id); err != nil {
		http.Error(w, "Failed to set primary construct", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.session.ActiveConstructs())
}
