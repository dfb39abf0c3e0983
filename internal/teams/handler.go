package teams

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler handles team HTTP requests
type Handler struct {
	repo   Repository
	logger *slog.Logger
}

// NewHandler creates a new teams handler
func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// HandleCreate provisions a new team and returns its API key
// POST /teams
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateTeamInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := input.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	team, err := h.repo.Create(r.Context(), &input)
	if err != nil {
		h.logger.Error("failed to create team", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("team created", "team_id", team.ID, "name", team.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(team)
}

// HandleMe returns the team resolved from the request's API key
// GET /teams/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	team, ok := FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Re-read so created_at is fresh even if the context copy is stale.
	current, err := h.repo.GetByID(r.Context(), team.ID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			http.Error(w, "Team not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get team", "error", err, "team_id", team.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(current)
}
