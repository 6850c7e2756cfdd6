package api

import (
	"encoding/json"
	"net/http"

	"github.com/speakai-labs/speakai/internal/domain"
	"github.com/speakai-labs/speakai/internal/identity"
)

// ListScenarios returns the scenario catalog in its fixed order.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.catalog.List(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load scenarios")
		return
	}
	JSON(w, http.StatusOK, map[string][]domain.Scenario{"scenarios": scenarios})
}

type startScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	Role       string `json:"role"`
}

// StartScenario activates a scripted scenario for the caller. Starting a
// scenario while another is active resets the conversation and starts fresh.
func (h *Handler) StartScenario(w http.ResponseWriter, r *http.Request) {
	var req startScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	scenario, err := h.catalog.Get(r.Context(), req.ScenarioID)
	if err != nil {
		Error(w, errorStatus(err), err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	snap, err := h.mgr.StartScenario(userID, *scenario, role)
	if err != nil {
		Error(w, errorStatus(err), err.Error())
		return
	}
	h.respondSnapshot(w, r, snap)
}
