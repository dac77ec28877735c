package api

import (
	"net/http"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"construct-chat/internal/db"
)

// DocumentHandler serves CRUD routes for one document collection
type DocumentHandler[T any] struct {
	collection *db.Collection[T]
	label      string
	// id exposes the document's id field
	id func(doc *T) *string
	// validate rejects documents before they are stored
	validate func(doc *T) string
	// onDelete runs after a document has been removed
	onDelete func(id string)
}

// NewDocumentHandler creates a handler for collection
func NewDocumentHandler[T any](collection *db.Collection[T], label string, id func(doc *T) *string) *DocumentHandler[T] {
	return &DocumentHandler[T]{
		collection: collection,
		label:      label,
		id:         id,
	}
}

// List handles GET on the collection
func (h *DocumentHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.collection.All()
	if err != nil {
		storeError(w, h.label, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// Get handles GET on a single document
func (h *DocumentHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.collection.Get(r.PathValue("id"))
	if err != nil {
		storeError(w, h.label, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Create handles POST on the collection. A missing id is generated.
func (h *DocumentHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var doc T
	if !decodeJSON(w, r, &doc) {
		return
	}
	if msg := h.check(&doc); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	id := h.id(&doc)
	*id = strings.TrimSpace(*id)
	if *id == "" {
		*id = shortuuid.New()
	}

	if _, err := h.collection.Put(*id, doc); err != nil {
		storeError(w, h.label, err)
		return
	}
	h.respondStored(w, http.StatusCreated, *id)
}

// Update handles PUT on a single document
func (h *DocumentHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	var doc T
	if !decodeJSON(w, r, &doc) {
		return
	}
	if msg := h.check(&doc); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	*h.id(&doc) = id
	if _, err := h.collection.Update(id, doc); err != nil {
		storeError(w, h.label, err)
		return
	}
	h.respondStored(w, http.StatusOK, id)
}

// Delete handles DELETE on a single document
func (h *DocumentHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.collection.Remove(id); err != nil {
		storeError(w, h.label, err)
		return
	}
	if h.onDelete != nil {
		h.onDelete(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler[T]) check(doc *T) string {
	if h.validate == nil {
		return ""
	}
	return h.validate(doc)
}

func (h *DocumentHandler[T]) respondStored(w http.ResponseWriter, status int, id string) {
	stored, err := h.collection.Get(id)
	if err != nil {
		storeError(w, h.label, err)
		return
	}
	writeJSON(w, status, stored)
}
