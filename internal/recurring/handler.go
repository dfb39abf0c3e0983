package recurring

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arqcashflow/backend/internal/expenses"
	"github.com/arqcashflow/backend/internal/teams"
)

// Handler handles recurring expense HTTP requests
type Handler struct {
	service    Service
	expenseSvc expenses.Service
	logger     *slog.Logger
}

// NewHandler creates a new recurring expenses handler
func NewHandler(service Service, expenseSvc expenses.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		expenseSvc: expenseSvc,
		logger:     logger,
	}
}

// createResponse is returned by HandleCreate: the stored template plus the
// occurrence series that was materialized for it.
type createResponse struct {
	Template    *Template           `json:"template"`
	Occurrences []*expenses.Expense `json:"occurrences"`
}

// updateResponse is returned by HandleUpdate. RuleChanged tells the client
// whether the recurrence rule was touched; when it was, the series has
// already been regenerated and RegeneratedCount reports the new row count.
type updateResponse struct {
	Template         *Template `json:"template"`
	RuleChanged      bool      `json:"rule_changed"`
	AffectedFields   []string  `json:"affected_fields,omitempty"`
	RegeneratedCount int       `json:"regenerated_count"`
}

// seriesUpdateRequest is the body for scoped occurrence updates
type seriesUpdateRequest struct {
	Scope    Scope        `json:"scope"`
	TargetID *string      `json:"target_id,omitempty"`
	Patch    *SeriesPatch `json:"patch"`
}

// HandleCreate creates a new recurring expense and generates its series
// POST /api/recurring-expenses
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input CreateTemplateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	template, occurrences, err := h.service.Create(r.Context(), team.ID, &input)
	if err != nil {
		h.logger.Error("failed to create recurring expense", "error", err, "team_id", team.ID)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&createResponse{
		Template:    template,
		Occurrences: occurrences,
	})
}

// HandleGet retrieves a recurring expense by ID
// GET /api/recurring-expenses/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	template, err := h.service.GetByID(r.Context(), team.ID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(template)
}

// HandleList lists recurring expenses for the team
// GET /api/recurring-expenses?is_active=true&category=software
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filters := &ListTemplatesFilters{}
	if isActiveStr := r.URL.Query().Get("is_active"); isActiveStr != "" {
		isActive, err := strconv.ParseBool(isActiveStr)
		if err == nil {
			filters.IsActive = &isActive
		}
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filters.Category = &category
	}

	templates, err := h.service.List(r.Context(), team.ID, filters)
	if err != nil {
		h.logger.Error("failed to list recurring expenses", "error", err, "team_id", team.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(templates)
}

// HandleUpdate updates a recurring expense. When the update touches the
// recurrence rule, the occurrence series is regenerated in the same request
// (paid occurrences preserved).
// PATCH /api/recurring-expenses/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	var input UpdateTemplateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	template, decision, err := h.service.Update(r.Context(), team.ID, id, &input)
	if err != nil {
		h.logger.Error("failed to update recurring expense", "error", err, "template_id", id)
		h.writeError(w, err)
		return
	}

	resp := &updateResponse{
		Template:       template,
		RuleChanged:    decision.RuleChanged,
		AffectedFields: decision.AffectedFields,
	}

	if decision.RuleChanged {
		count, err := h.service.Regenerate(r.Context(), team.ID, id, true)
		if err != nil {
			h.logger.Error("failed to regenerate series after rule change", "error", err, "template_id", id)
			h.writeError(w, err)
			return
		}
		resp.RegeneratedCount = count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleDelete deletes a recurring expense and its whole series
// DELETE /api/recurring-expenses/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	if _, err := h.service.DeleteSeries(r.Context(), team.ID, id, ScopeAll, nil); err != nil {
		h.logger.Error("failed to delete recurring expense", "error", err, "template_id", id)
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateSeries applies a scoped patch to the template's occurrences
// PUT /api/recurring-expenses/{id}/series
func (h *Handler) HandleUpdateSeries(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	var req seriesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Patch == nil {
		http.Error(w, ErrEmptyPatch.Error(), http.StatusBadRequest)
		return
	}

	count, err := h.service.UpdateSeries(r.Context(), team.ID, id, req.Patch, req.Scope, req.TargetID)
	if err != nil {
		h.logger.Error("failed to update series", "error", err, "template_id", id, "scope", req.Scope)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"updated_count": count})
}

// HandleDeleteSeries applies a scoped delete to the template's occurrences
// DELETE /api/recurring-expenses/{id}/series?scope=future&target_id=...
func (h *Handler) HandleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	scope := Scope(r.URL.Query().Get("scope"))
	var targetID *string
	if target := r.URL.Query().Get("target_id"); target != "" {
		targetID = &target
	}

	count, err := h.service.DeleteSeries(r.Context(), team.ID, id, scope, targetID)
	if err != nil {
		h.logger.Error("failed to delete series", "error", err, "template_id", id, "scope", scope)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"deleted_count": count})
}

// HandleRegenerate rebuilds the template's occurrence series from its current
// rule. Paid occurrences are preserved unless preserve_paid=false.
// POST /api/recurring-expenses/{id}/regenerate?preserve_paid=true
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	preservePaid := true
	if preserveStr := r.URL.Query().Get("preserve_paid"); preserveStr != "" {
		if parsed, err := strconv.ParseBool(preserveStr); err == nil {
			preservePaid = parsed
		}
	}

	count, err := h.service.Regenerate(r.Context(), team.ID, id, preservePaid)
	if err != nil {
		h.logger.Error("failed to regenerate series", "error", err, "template_id", id)
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"regenerated_count": count})
}

// HandleListOccurrences lists generated expenses for a template
// GET /api/recurring-expenses/{id}/occurrences?status=pending
func (h *Handler) HandleListOccurrences(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	filters := &expenses.ListFilters{RecurringExpenseID: &id}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := expenses.Status(statusStr)
		if err := status.Validate(); err == nil {
			filters.Status = &status
		}
	}

	occurrences, err := h.expenseSvc.List(r.Context(), team.ID, filters)
	if err != nil {
		h.logger.Error("failed to list occurrences", "error", err, "template_id", id)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(occurrences)
}

// writeError maps service errors to HTTP status codes. Wrapped errors are
// matched with errors.Is because lower layers annotate them with context.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		http.Error(w, "Recurring expense not found", http.StatusNotFound)
	case errors.Is(err, ErrOccurrenceNotFound):
		http.Error(w, "Occurrence not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidFrequency),
		errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrInvalidDayOfMonth),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrDescriptionRequired),
		errors.Is(err, ErrCategoryRequired),
		errors.Is(err, ErrStartDateRequired),
		errors.Is(err, ErrEndBeforeStart),
		errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrTargetRequired),
		errors.Is(err, ErrEmptyPatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
