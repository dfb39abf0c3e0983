package audit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arqcashflow/backend/internal/teams"
)

// Handler handles audit log HTTP requests
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new audit handler
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// listResponse wraps a page of audit logs with the total match count
type listResponse struct {
	Logs  []*AuditLog `json:"logs"`
	Total int         `json:"total"`
}

// HandleList queries the team's audit trail
// GET /api/audit-logs?action=SERIES_REGENERATED&resource_id=...&limit=50&offset=0
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	team, ok := teams.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Force the team scope; callers only ever see their own trail.
	filters := &ListFilters{TeamID: &team.ID}

	if actionStr := r.URL.Query().Get("action"); actionStr != "" {
		action := Action(actionStr)
		filters.Action = &action
	}
	if resourceType := r.URL.Query().Get("resource_type"); resourceType != "" {
		filters.ResourceType = &resourceType
	}
	if resourceID := r.URL.Query().Get("resource_id"); resourceID != "" {
		filters.ResourceID = &resourceID
	}
	if startStr := r.URL.Query().Get("start_time"); startStr != "" {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			filters.StartTime = &t
		}
	}
	if endStr := r.URL.Query().Get("end_time"); endStr != "" {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			filters.EndTime = &t
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filters.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	logs, total, err := h.service.Query(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to query audit logs", "error", err, "team_id", team.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&listResponse{Logs: logs, Total: total})
}
