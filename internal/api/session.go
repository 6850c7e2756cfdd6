package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speakai-labs/speakai/internal/domain"
	"github.com/speakai-labs/speakai/internal/identity"
)

// RegisterRoutes wires all API endpoints onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/scenarios", h.ListScenarios)
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/mode", h.SelectMode)
			r.Post("/scenario", h.StartScenario)
			r.Post("/reset", h.Reset)
			r.Post("/utterance", h.SubmitUtterance)
		})
	})
}

// Login starts an empty practice session for the caller. Authentication is
// simulated: the anonymous identity middleware has already established who
// the caller is, so login always succeeds.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	snap := h.mgr.Login(userID)
	h.respondSnapshot(w, r, snap)
}

// Logout discards the caller's session, transcript included.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	h.mgr.Logout(userID)
	JSON(w, http.StatusOK, sessionResponse{Session: sessionOut()})
}

// GetSession returns a read-only snapshot of the caller's session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	snap := h.mgr.Snapshot(userID)
	h.respondSnapshot(w, r, snap)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// SelectMode switches between freeform conversation and scenario browsing.
func (h *Handler) SelectMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	snap, err := h.mgr.SelectMode(userID, mode)
	if err != nil {
		Error(w, errorStatus(err), err.Error())
		return
	}
	h.respondSnapshot(w, r, snap)
}

// Reset clears the conversation and returns to freeform mode.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	snap, err := h.mgr.Reset(userID)
	if err != nil {
		Error(w, errorStatus(err), err.Error())
		return
	}
	h.respondSnapshot(w, r, snap)
}

type utteranceRequest struct {
	Text string `json:"text"`
}

// SubmitUtterance records a typed or spoken utterance. The response carries
// the snapshot with fresh pronunciation feedback; the AI reply lands in the
// transcript after the thinking delay, pushed over the speech socket.
func (h *Handler) SubmitUtterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	snap, err := h.mgr.SubmitUtterance(userID, req.Text)
	if err != nil {
		Error(w, errorStatus(err), err.Error())
		return
	}
	h.respondSnapshotStatus(w, r, http.StatusAccepted, snap)
}

// sessionResponse wraps a snapshot for the presentation layer.
type sessionResponse struct {
	Session domain.Snapshot `json:"session"`
}

func sessionOut() domain.Snapshot {
	return domain.Snapshot{Transcript: []domain.Message{}}
}

func (h *Handler) respondSnapshot(w http.ResponseWriter, r *http.Request, snap domain.Snapshot) {
	h.respondSnapshotStatus(w, r, http.StatusOK, snap)
}

func (h *Handler) respondSnapshotStatus(w http.ResponseWriter, r *http.Request, status int, snap domain.Snapshot) {
	h.attachProfile(r.Context(), identity.UserIDFromContext(r.Context()), &snap)
	JSON(w, status, sessionResponse{Session: snap})
}

// attachProfile fills the snapshot's learner counters. Best effort: a store
// hiccup degrades the header, not the session.
func (h *Handler) attachProfile(ctx context.Context, userID string, snap *domain.Snapshot) {
	if !snap.LoggedIn || userID == "" {
		return
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	profile, err := h.repo.GetProfile(lookupCtx, userID)
	if err != nil {
		slog.Warn("failed to load learner profile", "user_id", userID, "error", err)
		return
	}
	snap.Profile = profile
}
