package expenses

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Errors for expense operations
var (
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrInvalidStatus        = errors.New("invalid expense status")
	ErrInvalidAmount        = errors.New("amount is required and must be greater than 0")
	ErrDescriptionRequired  = errors.New("description is required")
	ErrCategoryRequired     = errors.New("category is required")
	ErrDueDateRequired      = errors.New("due_date is required")
)

// NullableDate represents a date that can be parsed from multiple formats
type NullableDate struct {
	time.Time
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler for NullableDate
func (d *NullableDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	if s == "null" || s == "" {
		d.Valid = false
		return nil
	}

	// Try to parse as date only (YYYY-MM-DD)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Try to parse as RFC3339 timestamp
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}

	d.Time = t
	d.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler for NullableDate
func (d NullableDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// ToTimePtr converts NullableDate to *time.Time
func (d *NullableDate) ToTimePtr() *time.Time {
	if !d.Valid {
		return nil
	}
	return &d.Time
}

// Status represents the payment state of an expense
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Validate checks if the status is valid
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// Expense represents a single expense line item. Expenses generated from a
// recurring template carry the template id in RecurringExpenseID; one-off
// expenses leave it nil.
type Expense struct {
	ID                 string  `json:"id"`
	TeamID             string  `json:"team_id"`
	RecurringExpenseID *string `json:"recurring_expense_id,omitempty"`

	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Vendor      *string `json:"vendor,omitempty"`
	Notes       *string `json:"notes,omitempty"`

	DueDate time.Time  `json:"due_date"`
	Status  Status     `json:"status"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that an expense row is well-formed before it is persisted.
func (e *Expense) Validate() error {
	if e.Description == "" {
		return ErrDescriptionRequired
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if e.Category == "" {
		return ErrCategoryRequired
	}
	if e.DueDate.IsZero() {
		return ErrDueDateRequired
	}
	return e.Status.Validate()
}

// CreateExpenseInput represents input for creating a one-off expense
type CreateExpenseInput struct {
	Description string        `json:"description"`
	Amount      float64       `json:"amount"`
	Category    string        `json:"category"`
	Vendor      *string       `json:"vendor,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	DueDate     *NullableDate `json:"due_date,omitempty"`
	Status      *Status       `json:"status,omitempty"` // Defaults to pending
}

// Validate validates the create expense input
func (i *CreateExpenseInput) Validate() error {
	if i.Description == "" {
		return ErrDescriptionRequired
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if i.Category == "" {
		return ErrCategoryRequired
	}
	if i.DueDate == nil || !i.DueDate.Valid {
		return ErrDueDateRequired
	}
	if i.Status != nil {
		return i.Status.Validate()
	}
	return nil
}

// UpdateExpenseInput represents input for updating an expense
type UpdateExpenseInput struct {
	Description *string       `json:"description,omitempty"`
	Amount      *float64      `json:"amount,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Vendor      *string       `json:"vendor,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	DueDate     *NullableDate `json:"due_date,omitempty"`
}

// Validate validates the update expense input
func (i *UpdateExpenseInput) Validate() error {
	if i.Description != nil && *i.Description == "" {
		return ErrDescriptionRequired
	}
	if i.Amount != nil && *i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if i.Category != nil && *i.Category == "" {
		return ErrCategoryRequired
	}
	return nil
}

// ListFilters represents filters for listing expenses
type ListFilters struct {
	Status             *Status
	Category           *string
	RecurringExpenseID *string
	DueFrom            *time.Time
	DueTo              *time.Time
}

// Repository defines the interface for expense data access
type Repository interface {
	Create(ctx context.Context, teamID string, input *CreateExpenseInput) (*Expense, error)
	GetByID(ctx context.Context, teamID, id string) (*Expense, error)
	List(ctx context.Context, teamID string, filters *ListFilters) ([]*Expense, error)
	Update(ctx context.Context, teamID, id string, input *UpdateExpenseInput) (*Expense, error)
	UpdateStatus(ctx context.Context, teamID, id string, status Status, paidAt *time.Time) (*Expense, error)
	Delete(ctx context.Context, teamID, id string) error
}

// Service defines the interface for expense business logic
type Service interface {
	Create(ctx context.Context, teamID string, input *CreateExpenseInput) (*Expense, error)
	GetByID(ctx context.Context, teamID, id string) (*Expense, error)
	List(ctx context.Context, teamID string, filters *ListFilters) ([]*Expense, error)
	Update(ctx context.Context, teamID, id string, input *UpdateExpenseInput) (*Expense, error)
	SetStatus(ctx context.Context, teamID, id string, status Status) (*Expense, error)
	Delete(ctx context.Context, teamID, id string) error
}
