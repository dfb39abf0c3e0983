package audit

import (
	"context"
	"time"
)

// Action represents an auditable action
type Action string

// Action constants (matching DB enum)
const (
	// Teams
	ActionTeamCreated Action = "TEAM_CREATED"

	// Expenses
	ActionExpenseCreated       Action = "EXPENSE_CREATED"
	ActionExpenseUpdated       Action = "EXPENSE_UPDATED"
	ActionExpenseDeleted       Action = "EXPENSE_DELETED"
	ActionExpenseStatusChanged Action = "EXPENSE_STATUS_CHANGED"

	// Recurring expenses and their series
	ActionRecurringExpenseCreated Action = "RECURRING_EXPENSE_CREATED"
	ActionRecurringExpenseUpdated Action = "RECURRING_EXPENSE_UPDATED"
	ActionSeriesUpdated           Action = "SERIES_UPDATED"
	ActionSeriesDeleted           Action = "SERIES_DELETED"
	ActionSeriesRegenerated       Action = "SERIES_REGENERATED"
)

// AuditLog represents a single audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	TeamID       string                 `json:"team_id"`
	CreatedAt    time.Time              `json:"created_at"`
	Action       Action                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage *string                `json:"error_message,omitempty"`
}

// LogInput represents input for creating an audit log
type LogInput struct {
	TeamID       string                 `json:"team_id"`
	Action       Action                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage *string                `json:"error_message,omitempty"`
}

// ListFilters represents filters for querying audit logs
type ListFilters struct {
	TeamID       *string
	Action       *Action
	ResourceType *string
	ResourceID   *string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Repository interface for audit log data access
type Repository interface {
	Create(ctx context.Context, input *LogInput) (*AuditLog, error)
	List(ctx context.Context, filters *ListFilters) ([]*AuditLog, int, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Service interface for audit logging
type Service interface {
	Log(ctx context.Context, input *LogInput) error
	LogAsync(ctx context.Context, input *LogInput)
	Query(ctx context.Context, filters *ListFilters) ([]*AuditLog, int, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}
