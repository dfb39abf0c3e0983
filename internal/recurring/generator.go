package recurring

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arqcashflow/backend/internal/expenses"
)

// Generator materializes expense occurrences for a template. Generation is
// eager: the whole capped series is written at creation/regeneration time,
// there is no background scheduler topping it up.
type Generator struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a new series generator
func NewGenerator(repo Repository, logger *slog.Logger) *Generator {
	return &Generator{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// buildOccurrences turns a date sequence into expense rows for the template.
// Dates strictly before now are backfilled as paid: a series registered with
// a past start date is assumed to have been honored up to today.
func buildOccurrences(template *Template, dates []time.Time, now time.Time) []*expenses.Expense {
	occurrences := make([]*expenses.Expense, 0, len(dates))
	for _, d := range dates {
		status := expenses.StatusPending
		if d.Before(now) {
			status = expenses.StatusPaid
		}

		templateID := template.ID
		occurrences = append(occurrences, &expenses.Expense{
			TeamID:             template.TeamID,
			RecurringExpenseID: &templateID,
			Description:        template.Description,
			Amount:             template.Amount,
			Category:           template.Category,
			Vendor:             template.Vendor,
			Notes:              template.Notes,
			DueDate:            d,
			Status:             status,
		})
	}
	return occurrences
}

// validateOccurrences checks every candidate row before the batched write,
// in parallel, so a bad row is caught without paying per-row round trips.
func validateOccurrences(ctx context.Context, occurrences []*expenses.Expense) error {
	g, _ := errgroup.WithContext(ctx)
	for _, occ := range occurrences {
		g.Go(occ.Validate)
	}
	return g.Wait()
}

// nextDueAfter returns the first date in the sequence strictly after now,
// or nil if the whole series is in the past.
func nextDueAfter(dates []time.Time, now time.Time) *time.Time {
	for _, d := range dates {
		if d.After(now) {
			due := d
			return &due
		}
	}
	return nil
}

// Generate materializes the occurrence series for a template: computes the
// capped date sequence, assigns backfill statuses, and persists all rows in
// a single transaction. An empty sequence (end date before the first
// occurrence) is a valid zero-row outcome, not an error.
func (g *Generator) Generate(ctx context.Context, teamID string, template *Template) ([]*expenses.Expense, error) {
	if err := template.ValidateRule(); err != nil {
		return nil, err
	}

	now := g.now()
	horizon := now.AddDate(HorizonYears, 0, 0)

	dates := GenerateSequence(template.StartDate, template.Frequency, template.Interval, template.DayOfMonth, template.EndDate, MaxOccurrences, horizon)
	if len(dates) == 0 {
		g.logger.Info("recurrence rule yields no occurrences",
			"template_id", template.ID,
			"team_id", teamID,
		)
		return nil, nil
	}

	occurrences := buildOccurrences(template, dates, now)
	if err := validateOccurrences(ctx, occurrences); err != nil {
		return nil, err
	}

	count, err := g.repo.CreateOccurrences(ctx, teamID, occurrences)
	if err != nil {
		return nil, err
	}

	if err := g.repo.UpdateGenerationTracking(ctx, teamID, template.ID, now, nextDueAfter(dates, now), count); err != nil {
		// Tracking is bookkeeping; the series itself is already committed.
		g.logger.Error("failed to update generation tracking",
			"template_id", template.ID,
			"error", err,
		)
	}

	g.logger.Info("occurrence series generated",
		"template_id", template.ID,
		"team_id", teamID,
		"count", count,
	)

	return occurrences, nil
}
