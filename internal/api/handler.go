// Package api provides HTTP handlers for the SpeakAI API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/speakai-labs/speakai/internal/catalog"
	"github.com/speakai-labs/speakai/internal/session"
	"github.com/speakai-labs/speakai/internal/store"
)

// Handler provides common handler utilities and dependencies.
type Handler struct {
	mgr     *session.Manager
	catalog *catalog.Service
	repo    store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(mgr *session.Manager, cat *catalog.Service, repo store.Repository) *Handler {
	return &Handler{
		mgr:     mgr,
		catalog: cat,
		repo:    repo,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
