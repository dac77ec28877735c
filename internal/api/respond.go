package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/pkg/errors"

	"construct-chat/internal/db"
)

// maxBodyBytes bounds request bodies; avatars and attachments travel as base64
const maxBodyBytes = 32 << 20

// HealthHandler handles GET /health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[HTTP] Failed to encode response err=%v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// storeError maps document store failures onto HTTP status codes
func storeError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, db.ErrConflict):
		http.Error(w, what+" already exists", http.StatusConflict)
	default:
		log.Printf("[HTTP] Store error what=%s err=%v", what, err)
		http.Error(w, "Failed to access "+what, http.StatusInternalServerError)
	}
}
