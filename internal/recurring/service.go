package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arqcashflow/backend/internal/audit"
	"github.com/arqcashflow/backend/internal/expenses"
)

// service implements Service
type service struct {
	repo      Repository
	generator *Generator
	mutator   *Mutator
	auditSvc  audit.Service
	logger    *slog.Logger
}

// NewService creates a new recurring expenses service
func NewService(repo Repository, auditSvc audit.Service, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		generator: NewGenerator(repo, logger),
		mutator:   NewMutator(repo, logger),
		auditSvc:  auditSvc,
		logger:    logger,
	}
}

// Create creates a recurring expense template and eagerly materializes its
// occurrence series.
func (s *service) Create(ctx context.Context, teamID string, input *CreateTemplateInput) (*Template, []*expenses.Expense, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	template, err := s.repo.CreateTemplate(ctx, teamID, input)
	if err != nil {
		return nil, nil, err
	}

	occurrences, err := s.generator.Generate(ctx, teamID, template)
	if err != nil {
		return nil, nil, fmt.Errorf("generate series for template %s: %w", template.ID, err)
	}

	s.logger.Info("recurring expense created",
		"template_id", template.ID,
		"team_id", teamID,
		"frequency", template.Frequency,
		"occurrences", len(occurrences),
	)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionRecurringExpenseCreated,
		ResourceType: "recurring_expense",
		ResourceID:   &template.ID,
		Metadata:     map[string]interface{}{"occurrences": len(occurrences)},
		Success:      true,
	})

	return template, occurrences, nil
}

// GetByID retrieves a template by ID
func (s *service) GetByID(ctx context.Context, teamID, id string) (*Template, error) {
	return s.repo.GetTemplate(ctx, teamID, id)
}

// List lists templates for a team
func (s *service) List(ctx context.Context, teamID string, filters *ListTemplatesFilters) ([]*Template, error) {
	return s.repo.ListTemplates(ctx, teamID, filters)
}

// ruleChange compares the update input against the current template and
// reports which rule fields actually change value.
func ruleChange(current *Template, input *UpdateTemplateInput) *RuleChangeDecision {
	var affected []string

	if input.Frequency != nil && *input.Frequency != current.Frequency {
		affected = append(affected, "frequency")
	}
	if input.Interval != nil && *input.Interval != current.Interval {
		affected = append(affected, "interval")
	}
	if input.DayOfMonth != nil && (current.DayOfMonth == nil || *input.DayOfMonth != *current.DayOfMonth) {
		affected = append(affected, "day_of_month")
	}
	if input.StartDate != nil && input.StartDate.Valid && !sameDay(input.StartDate.Time, current.StartDate) {
		affected = append(affected, "start_date")
	}
	if input.EndDate != nil {
		switch {
		case !input.EndDate.Valid && current.EndDate != nil:
			affected = append(affected, "end_date")
		case input.EndDate.Valid && (current.EndDate == nil || !sameDay(input.EndDate.Time, *current.EndDate)):
			affected = append(affected, "end_date")
		}
	}

	return &RuleChangeDecision{
		RuleChanged:    len(affected) > 0,
		AffectedFields: affected,
	}
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// applyRuleInput overlays the update's rule fields onto a template copy
func applyRuleInput(t *Template, input *UpdateTemplateInput) {
	if input.Frequency != nil {
		t.Frequency = *input.Frequency
	}
	if input.Interval != nil {
		t.Interval = *input.Interval
	}
	if input.DayOfMonth != nil {
		t.DayOfMonth = input.DayOfMonth
	}
	if input.StartDate != nil && input.StartDate.Valid {
		t.StartDate = input.StartDate.Time
	}
	if input.EndDate != nil {
		t.EndDate = input.EndDate.ToTimePtr()
	}
}

// Update updates a template and returns an explicit decision on whether the
// recurrence rule changed, so the caller can trigger regeneration.
func (s *service) Update(ctx context.Context, teamID, id string, input *UpdateTemplateInput) (*Template, *RuleChangeDecision, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	current, err := s.repo.GetTemplate(ctx, teamID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("template %s: %w", id, err)
	}

	decision := ruleChange(current, input)

	// The combined rule must stay valid after a partial update (e.g. moving
	// start_date past an existing end_date), checked before anything persists.
	merged := *current
	applyRuleInput(&merged, input)
	if err := merged.ValidateRule(); err != nil {
		return nil, nil, err
	}

	updated, err := s.repo.UpdateTemplate(ctx, teamID, id, input)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("recurring expense updated",
		"template_id", id,
		"team_id", teamID,
		"rule_changed", decision.RuleChanged,
	)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionRecurringExpenseUpdated,
		ResourceType: "recurring_expense",
		ResourceID:   &id,
		Metadata:     map[string]interface{}{"rule_changed": decision.RuleChanged},
		Success:      true,
	})

	return updated, decision, nil
}

// UpdateSeries applies a scoped patch to the template's occurrences
func (s *service) UpdateSeries(ctx context.Context, teamID, templateID string, patch *SeriesPatch, scope Scope, targetID *string) (int, error) {
	count, err := s.mutator.UpdateSeries(ctx, teamID, templateID, patch, scope, targetID)
	if err != nil {
		return 0, err
	}

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionSeriesUpdated,
		ResourceType: "recurring_expense",
		ResourceID:   &templateID,
		Metadata:     map[string]interface{}{"scope": string(scope), "count": count},
		Success:      true,
	})

	return count, nil
}

// DeleteSeries applies a scoped delete to the template's occurrences
func (s *service) DeleteSeries(ctx context.Context, teamID, templateID string, scope Scope, targetID *string) (int, error) {
	count, err := s.mutator.DeleteSeries(ctx, teamID, templateID, scope, targetID)
	if err != nil {
		return 0, err
	}

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionSeriesDeleted,
		ResourceType: "recurring_expense",
		ResourceID:   &templateID,
		Metadata:     map[string]interface{}{"scope": string(scope), "count": count},
		Success:      true,
	})

	return count, nil
}

// Regenerate rebuilds the template's occurrence series
func (s *service) Regenerate(ctx context.Context, teamID, templateID string, preservePaid bool) (int, error) {
	count, err := s.mutator.Regenerate(ctx, teamID, templateID, preservePaid)
	if err != nil {
		return 0, err
	}

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionSeriesRegenerated,
		ResourceType: "recurring_expense",
		ResourceID:   &templateID,
		Metadata:     map[string]interface{}{"preserve_paid": preservePaid, "count": count},
		Success:      true,
	})

	return count, nil
}
