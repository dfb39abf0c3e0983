package expenses

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arqcashflow/backend/internal/teams"
)

// Handler handles expense HTTP requests
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new expenses handler
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// statusRequest is the body for the status transition endpoint
type statusRequest struct {
	Status Status `json:"status"`
}

// HandleCreate creates a one-off expense
// POST /api/expenses
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input CreateExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expense, err := h.service.Create(r.Context(), team.ID, &input)
	if err != nil {
		h.logger.Error("failed to create expense", "error", err, "team_id", team.ID)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(expense)
}

// HandleGet retrieves an expense by ID
// GET /api/expenses/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "expense ID required", http.StatusBadRequest)
		return
	}

	expense, err := h.service.GetByID(r.Context(), team.ID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expense)
}

// HandleList lists expenses for the team
// GET /api/expenses?status=pending&category=rent&due_from=2026-01-01&due_to=2026-12-31
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filters := &ListFilters{}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := Status(statusStr)
		if err := status.Validate(); err == nil {
			filters.Status = &status
		}
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filters.Category = &category
	}
	if recurringID := r.URL.Query().Get("recurring_expense_id"); recurringID != "" {
		filters.RecurringExpenseID = &recurringID
	}
	if dueFromStr := r.URL.Query().Get("due_from"); dueFromStr != "" {
		if t, err := time.Parse("2006-01-02", dueFromStr); err == nil {
			filters.DueFrom = &t
		}
	}
	if dueToStr := r.URL.Query().Get("due_to"); dueToStr != "" {
		if t, err := time.Parse("2006-01-02", dueToStr); err == nil {
			filters.DueTo = &t
		}
	}

	list, err := h.service.List(r.Context(), team.ID, filters)
	if err != nil {
		h.logger.Error("failed to list expenses", "error", err, "team_id", team.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleUpdate updates an expense's descriptive fields
// PATCH /api/expenses/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "expense ID required", http.StatusBadRequest)
		return
	}

	var input UpdateExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expense, err := h.service.Update(r.Context(), team.ID, id, &input)
	if err != nil {
		h.logger.Error("failed to update expense", "error", err, "expense_id", id)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expense)
}

// HandleSetStatus transitions an expense to a new payment status
// PUT /api/expenses/{id}/status
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "expense ID required", http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expense, err := h.service.SetStatus(r.Context(), team.ID, id, req.Status)
	if err != nil {
		h.logger.Error("failed to set expense status", "error", err, "expense_id", id)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expense)
}

// HandleDelete deletes an expense
// DELETE /api/expenses/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "expense ID required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), team.ID, id); err != nil {
		h.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeError maps service errors to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrExpenseNotFound):
		http.Error(w, "Expense not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrDescriptionRequired),
		errors.Is(err, ErrCategoryRequired),
		errors.Is(err, ErrDueDateRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
