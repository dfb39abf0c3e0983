package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/arqcashflow/backend/internal/audit"
)

// service implements Service
type service struct {
	repo     Repository
	auditSvc audit.Service
	logger   *slog.Logger
}

// NewService creates a new expenses service
func NewService(repo Repository, auditSvc audit.Service, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		auditSvc: auditSvc,
		logger:   logger,
	}
}

// Create creates a new one-off expense
func (s *service) Create(ctx context.Context, teamID string, input *CreateExpenseInput) (*Expense, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	expense, err := s.repo.Create(ctx, teamID, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", expense.ID,
		"team_id", teamID,
		"amount", expense.Amount,
	)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionExpenseCreated,
		ResourceType: "expense",
		ResourceID:   &expense.ID,
		Success:      true,
	})

	return expense, nil
}

// GetByID retrieves an expense by ID
func (s *service) GetByID(ctx context.Context, teamID, id string) (*Expense, error) {
	return s.repo.GetByID(ctx, teamID, id)
}

// List lists expenses with optional filters
func (s *service) List(ctx context.Context, teamID string, filters *ListFilters) ([]*Expense, error) {
	return s.repo.List(ctx, teamID, filters)
}

// Update updates an expense's descriptive fields
func (s *service) Update(ctx context.Context, teamID, id string, input *UpdateExpenseInput) (*Expense, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	expense, err := s.repo.Update(ctx, teamID, id, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense updated", "expense_id", id, "team_id", teamID)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionExpenseUpdated,
		ResourceType: "expense",
		ResourceID:   &id,
		Success:      true,
	})

	return expense, nil
}

// SetStatus transitions an expense to a new payment status. Paid expenses
// record the transition time; moving away from paid clears it.
func (s *service) SetStatus(ctx context.Context, teamID, id string, status Status) (*Expense, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	var paidAt *time.Time
	if status == StatusPaid {
		now := time.Now()
		paidAt = &now
	}

	expense, err := s.repo.UpdateStatus(ctx, teamID, id, status, paidAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense status changed",
		"expense_id", id,
		"team_id", teamID,
		"status", status,
	)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionExpenseStatusChanged,
		ResourceType: "expense",
		ResourceID:   &id,
		Metadata:     map[string]interface{}{"status": string(status)},
		Success:      true,
	})

	return expense, nil
}

// Delete deletes an expense
func (s *service) Delete(ctx context.Context, teamID, id string) error {
	if err := s.repo.Delete(ctx, teamID, id); err != nil {
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "team_id", teamID)

	s.auditSvc.LogAsync(ctx, &audit.LogInput{
		TeamID:       teamID,
		Action:       audit.ActionExpenseDeleted,
		ResourceType: "expense",
		ResourceID:   &id,
		Success:      true,
	})

	return nil
}
