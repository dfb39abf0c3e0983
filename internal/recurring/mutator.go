package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arqcashflow/backend/internal/expenses"
)

// Mutator applies scope-qualified updates and deletions to a generated
// occurrence set, and regenerates a series after its rule changed.
type Mutator struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewMutator creates a new series mutator
func NewMutator(repo Repository, logger *slog.Logger) *Mutator {
	return &Mutator{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// resolveTarget verifies a single-scope target occurrence: it must exist and
// belong to the given template within the team scope. A target from another
// template or team signals not-found, never a silent no-op.
func (m *Mutator) resolveTarget(ctx context.Context, teamID, templateID string, targetID *string) (string, error) {
	if targetID == nil || *targetID == "" {
		return "", ErrTargetRequired
	}
	occ, err := m.repo.GetOccurrence(ctx, teamID, templateID, *targetID)
	if err != nil {
		return "", fmt.Errorf("target %s in template %s: %w", *targetID, templateID, err)
	}
	return occ.ID, nil
}

// selectIDs resolves the occurrence set for a scope, evaluated against now.
func (m *Mutator) selectIDs(ctx context.Context, teamID, templateID string, scope Scope, targetID *string) ([]string, error) {
	switch scope {
	case ScopeSingle:
		id, err := m.resolveTarget(ctx, teamID, templateID, targetID)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil

	case ScopeFuture:
		now := m.now()
		pending := expenses.StatusPending
		occs, err := m.repo.ListOccurrences(ctx, teamID, templateID, &OccurrenceFilter{
			Status:  &pending,
			DueFrom: &now,
		})
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(occs))
		for _, occ := range occs {
			ids = append(ids, occ.ID)
		}
		return ids, nil

	case ScopeAll:
		occs, err := m.repo.ListOccurrences(ctx, teamID, templateID, nil)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(occs))
		for _, occ := range occs {
			ids = append(ids, occ.ID)
		}
		return ids, nil

	default:
		return nil, ErrInvalidScope
	}
}

// UpdateSeries applies a patch to the occurrences selected by scope, in one
// transaction. Returns the number of rows updated.
func (m *Mutator) UpdateSeries(ctx context.Context, teamID, templateID string, patch *SeriesPatch, scope Scope, targetID *string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	if err := patch.Validate(); err != nil {
		return 0, err
	}

	if _, err := m.repo.GetTemplate(ctx, teamID, templateID); err != nil {
		return 0, fmt.Errorf("template %s: %w", templateID, err)
	}

	ids, err := m.selectIDs(ctx, teamID, templateID, scope, targetID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	count, err := m.repo.UpdateOccurrences(ctx, teamID, ids, patch)
	if err != nil {
		return 0, err
	}

	m.logger.Info("occurrence series updated",
		"template_id", templateID,
		"team_id", teamID,
		"scope", scope,
		"count", count,
	)

	return count, nil
}

// DeleteSeries deletes the occurrences selected by scope. A future-scope
// delete additionally deactivates the template (its forward schedule is
// gone); an all-scope delete cascades to the template row itself.
func (m *Mutator) DeleteSeries(ctx context.Context, teamID, templateID string, scope Scope, targetID *string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}

	if _, err := m.repo.GetTemplate(ctx, teamID, templateID); err != nil {
		return 0, fmt.Errorf("template %s: %w", templateID, err)
	}

	var count int
	switch scope {
	case ScopeSingle:
		id, err := m.resolveTarget(ctx, teamID, templateID, targetID)
		if err != nil {
			return 0, err
		}
		count, err = m.repo.DeleteOccurrences(ctx, teamID, []string{id})
		if err != nil {
			return 0, err
		}

	case ScopeFuture:
		ids, err := m.selectIDs(ctx, teamID, templateID, scope, nil)
		if err != nil {
			return 0, err
		}
		count, err = m.repo.DeleteFutureOccurrences(ctx, teamID, templateID, ids)
		if err != nil {
			return 0, err
		}

	case ScopeAll:
		var err error
		count, err = m.repo.DeleteSeriesCascade(ctx, teamID, templateID)
		if err != nil {
			return 0, err
		}
	}

	m.logger.Info("occurrence series deleted",
		"template_id", templateID,
		"team_id", teamID,
		"scope", scope,
		"count", count,
	)

	return count, nil
}

// Regenerate rebuilds the occurrence series against the template's current
// rule. With preservePaid, paid occurrences keep their rows untouched and
// newly generated dates colliding with a preserved date are skipped. Returns
// the number of newly created occurrences.
func (m *Mutator) Regenerate(ctx context.Context, teamID, templateID string, preservePaid bool) (int, error) {
	template, err := m.repo.GetTemplate(ctx, teamID, templateID)
	if err != nil {
		return 0, fmt.Errorf("template %s: %w", templateID, err)
	}
	if err := template.ValidateRule(); err != nil {
		return 0, err
	}

	preserved := make(map[string]bool)
	if preservePaid {
		paid := expenses.StatusPaid
		occs, err := m.repo.ListOccurrences(ctx, teamID, templateID, &OccurrenceFilter{Status: &paid})
		if err != nil {
			return 0, err
		}
		for _, occ := range occs {
			preserved[occ.DueDate.Format("2006-01-02")] = true
		}
	}

	now := m.now()
	horizon := now.AddDate(HorizonYears, 0, 0)
	dates := GenerateSequence(template.StartDate, template.Frequency, template.Interval, template.DayOfMonth, template.EndDate, MaxOccurrences, horizon)

	fresh := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if preserved[d.Format("2006-01-02")] {
			continue
		}
		fresh = append(fresh, d)
	}

	occurrences := buildOccurrences(template, fresh, now)
	if err := validateOccurrences(ctx, occurrences); err != nil {
		return 0, err
	}

	count, err := m.repo.ReplaceOccurrences(ctx, teamID, templateID, preservePaid, occurrences)
	if err != nil {
		return 0, err
	}

	if err := m.repo.UpdateGenerationTracking(ctx, teamID, templateID, now, nextDueAfter(dates, now), count); err != nil {
		m.logger.Error("failed to update generation tracking",
			"template_id", templateID,
			"error", err,
		)
	}

	m.logger.Info("occurrence series regenerated",
		"template_id", templateID,
		"team_id", teamID,
		"preserve_paid", preservePaid,
		"count", count,
	)

	return count, nil
}
