package recurring

import (
	"context"
	"errors"
	"time"

	"github.com/arqcashflow/backend/internal/expenses"
)

// Errors for recurring expense operations
var (
	ErrTemplateNotFound       = errors.New("recurring expense template not found")
	ErrOccurrenceNotFound     = errors.New("occurrence not found for template")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidInterval        = errors.New("interval must be at least 1")
	ErrInvalidDayOfMonth      = errors.New("day_of_month must be between 1 and 31")
	ErrInvalidAmount          = errors.New("amount is required and must be greater than 0")
	ErrDescriptionRequired    = errors.New("description is required")
	ErrCategoryRequired       = errors.New("category is required")
	ErrStartDateRequired      = errors.New("start_date is required")
	ErrEndBeforeStart         = errors.New("end_date must not be before start_date")
	ErrInvalidScope           = errors.New("scope must be one of: single, future, all")
	ErrTargetRequired         = errors.New("target occurrence id is required for scope=single")
	ErrEmptyPatch             = errors.New("patch must set at least one field")
)

// Frequency represents how often a recurring expense repeats
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// Validate checks if the frequency is valid
func (f Frequency) Validate() error {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

// Scope selects which occurrences a series mutation applies to
type Scope string

const (
	// ScopeSingle targets exactly one occurrence, identified by the caller.
	ScopeSingle Scope = "single"
	// ScopeFuture targets pending occurrences with due_date >= now. Paid and
	// cancelled occurrences are never swept by this scope.
	ScopeFuture Scope = "future"
	// ScopeAll targets every occurrence of the template.
	ScopeAll Scope = "all"
)

// Validate checks if the scope is valid
func (s Scope) Validate() error {
	switch s {
	case ScopeSingle, ScopeFuture, ScopeAll:
		return nil
	default:
		return ErrInvalidScope
	}
}

// Template represents a recurring expense: the rule from which expense
// occurrences are generated.
type Template struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`

	// Recurrence rule
	Frequency  Frequency  `json:"frequency"`
	Interval   int        `json:"interval"`
	DayOfMonth *int       `json:"day_of_month,omitempty"` // 1-31, monthly/quarterly/annual anchor
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`

	// Descriptive fields copied onto generated occurrences
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Vendor      *string `json:"vendor,omitempty"`
	Notes       *string `json:"notes,omitempty"`

	// Lifecycle
	IsActive       bool       `json:"is_active"`
	NextDue        *time.Time `json:"next_due,omitempty"`
	LastGenerated  *time.Time `json:"last_generated,omitempty"`
	GeneratedCount int        `json:"generated_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateRule checks the template's recurrence rule invariants. It is run
// before any generation so a malformed rule never produces a partial series.
func (t *Template) ValidateRule() error {
	if err := t.Frequency.Validate(); err != nil {
		return err
	}
	if t.Interval < 1 {
		return ErrInvalidInterval
	}
	if t.DayOfMonth != nil && (*t.DayOfMonth < 1 || *t.DayOfMonth > 31) {
		return ErrInvalidDayOfMonth
	}
	if t.StartDate.IsZero() {
		return ErrStartDateRequired
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// CreateTemplateInput represents input for creating a recurring expense
type CreateTemplateInput struct {
	Frequency  Frequency              `json:"frequency"`
	Interval   int                    `json:"interval"`
	DayOfMonth *int                   `json:"day_of_month,omitempty"`
	StartDate  *expenses.NullableDate `json:"start_date,omitempty"`
	EndDate    *expenses.NullableDate `json:"end_date,omitempty"`

	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Vendor      *string `json:"vendor,omitempty"`
	Notes       *string `json:"notes,omitempty"`

	IsActive *bool `json:"is_active,omitempty"` // Defaults to true
}

// Validate validates the create template input
func (i *CreateTemplateInput) Validate() error {
	if i.Description == "" {
		return ErrDescriptionRequired
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if i.Category == "" {
		return ErrCategoryRequired
	}
	if err := i.Frequency.Validate(); err != nil {
		return err
	}
	if i.Interval < 1 {
		return ErrInvalidInterval
	}
	if i.DayOfMonth != nil && (*i.DayOfMonth < 1 || *i.DayOfMonth > 31) {
		return ErrInvalidDayOfMonth
	}
	if i.StartDate == nil || !i.StartDate.Valid {
		return ErrStartDateRequired
	}
	if i.EndDate != nil && i.EndDate.Valid && i.EndDate.Time.Before(i.StartDate.Time) {
		return ErrEndBeforeStart
	}
	return nil
}

// UpdateTemplateInput represents input for updating a recurring expense
type UpdateTemplateInput struct {
	Frequency  *Frequency             `json:"frequency,omitempty"`
	Interval   *int                   `json:"interval,omitempty"`
	DayOfMonth *int                   `json:"day_of_month,omitempty"`
	StartDate  *expenses.NullableDate `json:"start_date,omitempty"`
	EndDate    *expenses.NullableDate `json:"end_date,omitempty"`

	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Vendor      *string  `json:"vendor,omitempty"`
	Notes       *string  `json:"notes,omitempty"`

	IsActive *bool `json:"is_active,omitempty"`
}

// Validate validates the update template input
func (i *UpdateTemplateInput) Validate() error {
	if i.Frequency != nil {
		if err := i.Frequency.Validate(); err != nil {
			return err
		}
	}
	if i.Interval != nil && *i.Interval < 1 {
		return ErrInvalidInterval
	}
	if i.DayOfMonth != nil && (*i.DayOfMonth < 1 || *i.DayOfMonth > 31) {
		return ErrInvalidDayOfMonth
	}
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

// RuleFields lists the template fields whose change invalidates the
// generated series.
var RuleFields = []string{"frequency", "interval", "day_of_month", "start_date", "end_date"}

// RuleChangeDecision reports whether a template update touched the
// recurrence rule, so the caller can decide to regenerate the series.
type RuleChangeDecision struct {
	RuleChanged    bool     `json:"rule_changed"`
	AffectedFields []string `json:"affected_fields,omitempty"`
}

// SeriesPatch is the set of occurrence fields a scoped series update may
// change. Due dates and statuses are never patched through this path;
// dates only move via regeneration and statuses via the payment workflow.
type SeriesPatch struct {
	Amount      *float64 `json:"amount,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Vendor      *string  `json:"vendor,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// Validate validates the series patch
func (p *SeriesPatch) Validate() error {
	if p.Amount == nil && p.Description == nil && p.Category == nil && p.Vendor == nil && p.Notes == nil {
		return ErrEmptyPatch
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Description != nil && *p.Description == "" {
		return ErrDescriptionRequired
	}
	if p.Category != nil && *p.Category == "" {
		return ErrCategoryRequired
	}
	return nil
}

// OccurrenceFilter narrows occurrence selection within one template
type OccurrenceFilter struct {
	Status  *expenses.Status
	DueFrom *time.Time
}

// ListTemplatesFilters represents filters for listing templates
type ListTemplatesFilters struct {
	IsActive *bool
	Category *string
}

// Repository defines the persistence collaborator for templates and their
// generated occurrences. Every method takes the team scope explicitly;
// implementations must apply it to every statement. Multi-row mutations are
// atomic per call.
type Repository interface {
	CreateTemplate(ctx context.Context, teamID string, input *CreateTemplateInput) (*Template, error)
	GetTemplate(ctx context.Context, teamID, id string) (*Template, error)
	ListTemplates(ctx context.Context, teamID string, filters *ListTemplatesFilters) ([]*Template, error)
	UpdateTemplate(ctx context.Context, teamID, id string, input *UpdateTemplateInput) (*Template, error)
	UpdateGenerationTracking(ctx context.Context, teamID, id string, lastGenerated time.Time, nextDue *time.Time, generatedCount int) error

	CreateOccurrences(ctx context.Context, teamID string, occurrences []*expenses.Expense) (int, error)
	GetOccurrence(ctx context.Context, teamID, templateID, occurrenceID string) (*expenses.Expense, error)
	ListOccurrences(ctx context.Context, teamID, templateID string, filter *OccurrenceFilter) ([]*expenses.Expense, error)
	UpdateOccurrences(ctx context.Context, teamID string, ids []string, patch *SeriesPatch) (int, error)
	DeleteOccurrences(ctx context.Context, teamID string, ids []string) (int, error)

	// DeleteFutureOccurrences deletes the given occurrences and marks the
	// template inactive, in one transaction.
	DeleteFutureOccurrences(ctx context.Context, teamID, templateID string, ids []string) (int, error)
	// DeleteSeriesCascade deletes every occurrence of the template and the
	// template itself, in one transaction.
	DeleteSeriesCascade(ctx context.Context, teamID, templateID string) (int, error)
	// ReplaceOccurrences deletes the template's occurrences (all of them, or
	// only non-paid ones when preservePaid is set) and inserts the new batch,
	// in one transaction. Returns the number of rows inserted.
	ReplaceOccurrences(ctx context.Context, teamID, templateID string, preservePaid bool, occurrences []*expenses.Expense) (int, error)
}

// Service defines the recurring expense surface exposed to the API layer
type Service interface {
	Create(ctx context.Context, teamID string, input *CreateTemplateInput) (*Template, []*expenses.Expense, error)
	GetByID(ctx context.Context, teamID, id string) (*Template, error)
	List(ctx context.Context, teamID string, filters *ListTemplatesFilters) ([]*Template, error)
	Update(ctx context.Context, teamID, id string, input *UpdateTemplateInput) (*Template, *RuleChangeDecision, error)
	UpdateSeries(ctx context.Context, teamID, templateID string, patch *SeriesPatch, scope Scope, targetID *string) (int, error)
	DeleteSeries(ctx context.Context, teamID, templateID string, scope Scope, targetID *string) (int, error)
	Regenerate(ctx context.Context, teamID, templateID string, preservePaid bool) (int, error)
}
