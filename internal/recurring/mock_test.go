package recurring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arqcashflow/backend/internal/expenses"
)

// MockRepository is an in-memory Repository for testing. Errors can be
// injected per method via failOn; an injected failure leaves the stored
// state untouched, mirroring the transactional behavior of the real one.
type MockRepository struct {
	templates   map[string]*Template
	occurrences map[string]*expenses.Expense
	seq         int
	failOn      map[string]error
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		templates:   make(map[string]*Template),
		occurrences: make(map[string]*expenses.Expense),
		failOn:      make(map[string]error),
	}
}

// FailOn injects an error for the named method
func (m *MockRepository) FailOn(method string, err error) {
	m.failOn[method] = err
}

func (m *MockRepository) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *MockRepository) CreateTemplate(ctx context.Context, teamID string, input *CreateTemplateInput) (*Template, error) {
	if err := m.failOn["CreateTemplate"]; err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	var endDate *time.Time
	if input.EndDate != nil {
		endDate = input.EndDate.ToTimePtr()
	}

	t := &Template{
		ID:          m.nextID("tpl"),
		TeamID:      teamID,
		Frequency:   input.Frequency,
		Interval:    input.Interval,
		DayOfMonth:  input.DayOfMonth,
		StartDate:   input.StartDate.Time,
		EndDate:     endDate,
		Description: input.Description,
		Amount:      input.Amount,
		Category:    input.Category,
		Vendor:      input.Vendor,
		Notes:       input.Notes,
		IsActive:    isActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.templates[t.ID] = t
	return t, nil
}

func (m *MockRepository) GetTemplate(ctx context.Context, teamID, id string) (*Template, error) {
	if err := m.failOn["GetTemplate"]; err != nil {
		return nil, err
	}
	t, ok := m.templates[id]
	if !ok || t.TeamID != teamID {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (m *MockRepository) ListTemplates(ctx context.Context, teamID string, filters *ListTemplatesFilters) ([]*Template, error) {
	var out []*Template
	for _, t := range m.templates {
		if t.TeamID != teamID {
			continue
		}
		if filters != nil {
			if filters.IsActive != nil && t.IsActive != *filters.IsActive {
				continue
			}
			if filters.Category != nil && t.Category != *filters.Category {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MockRepository) UpdateTemplate(ctx context.Context, teamID, id string, input *UpdateTemplateInput) (*Template, error) {
	if err := m.failOn["UpdateTemplate"]; err != nil {
		return nil, err
	}
	t, ok := m.templates[id]
	if !ok || t.TeamID != teamID {
		return nil, ErrTemplateNotFound
	}

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
	if input.Description != nil {
		t.Description = *input.Description
	}
	if input.Amount != nil {
		t.Amount = *input.Amount
	}
	if input.Category != nil {
		t.Category = *input.Category
	}
	if input.Vendor != nil {
		t.Vendor = input.Vendor
	}
	if input.Notes != nil {
		t.Notes = input.Notes
	}
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}
	t.UpdatedAt = time.Now()
	return t, nil
}

func (m *MockRepository) UpdateGenerationTracking(ctx context.Context, teamID, id string, lastGenerated time.Time, nextDue *time.Time, generatedCount int) error {
	if err := m.failOn["UpdateGenerationTracking"]; err != nil {
		return err
	}
	t, ok := m.templates[id]
	if !ok || t.TeamID != teamID {
		return ErrTemplateNotFound
	}
	t.LastGenerated = &lastGenerated
	t.NextDue = nextDue
	t.GeneratedCount = generatedCount
	return nil
}

func (m *MockRepository) CreateOccurrences(ctx context.Context, teamID string, occurrences []*expenses.Expense) (int, error) {
	if err := m.failOn["CreateOccurrences"]; err != nil {
		return 0, err
	}
	for _, occ := range occurrences {
		occ.ID = m.nextID("occ")
		occ.TeamID = teamID
		m.occurrences[occ.ID] = occ
	}
	return len(occurrences), nil
}

func (m *MockRepository) GetOccurrence(ctx context.Context, teamID, templateID, occurrenceID string) (*expenses.Expense, error) {
	occ, ok := m.occurrences[occurrenceID]
	if !ok || occ.TeamID != teamID || occ.RecurringExpenseID == nil || *occ.RecurringExpenseID != templateID {
		return nil, ErrOccurrenceNotFound
	}
	return occ, nil
}

func (m *MockRepository) ListOccurrences(ctx context.Context, teamID, templateID string, filter *OccurrenceFilter) ([]*expenses.Expense, error) {
	if err := m.failOn["ListOccurrences"]; err != nil {
		return nil, err
	}
	var out []*expenses.Expense
	for _, occ := range m.occurrences {
		if occ.TeamID != teamID || occ.RecurringExpenseID == nil || *occ.RecurringExpenseID != templateID {
			continue
		}
		if filter != nil {
			if filter.Status != nil && occ.Status != *filter.Status {
				continue
			}
			if filter.DueFrom != nil && occ.DueDate.Before(*filter.DueFrom) {
				continue
			}
		}
		out = append(out, occ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *MockRepository) UpdateOccurrences(ctx context.Context, teamID string, ids []string, patch *SeriesPatch) (int, error) {
	if err := m.failOn["UpdateOccurrences"]; err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		occ, ok := m.occurrences[id]
		if !ok || occ.TeamID != teamID {
			continue
		}
		if patch.Amount != nil {
			occ.Amount = *patch.Amount
		}
		if patch.Description != nil {
			occ.Description = *patch.Description
		}
		if patch.Category != nil {
			occ.Category = *patch.Category
		}
		if patch.Vendor != nil {
			occ.Vendor = patch.Vendor
		}
		if patch.Notes != nil {
			occ.Notes = patch.Notes
		}
		occ.UpdatedAt = time.Now()
		count++
	}
	return count, nil
}

func (m *MockRepository) DeleteOccurrences(ctx context.Context, teamID string, ids []string) (int, error) {
	if err := m.failOn["DeleteOccurrences"]; err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		occ, ok := m.occurrences[id]
		if !ok || occ.TeamID != teamID {
			continue
		}
		delete(m.occurrences, id)
		count++
	}
	return count, nil
}

func (m *MockRepository) DeleteFutureOccurrences(ctx context.Context, teamID, templateID string, ids []string) (int, error) {
	if err := m.failOn["DeleteFutureOccurrences"]; err != nil {
		return 0, err
	}
	count, _ := m.DeleteOccurrences(ctx, teamID, ids)
	if t, ok := m.templates[templateID]; ok && t.TeamID == teamID {
		t.IsActive = false
		t.NextDue = nil
	}
	return count, nil
}

func (m *MockRepository) DeleteSeriesCascade(ctx context.Context, teamID, templateID string) (int, error) {
	if err := m.failOn["DeleteSeriesCascade"]; err != nil {
		return 0, err
	}
	count := 0
	for id, occ := range m.occurrences {
		if occ.TeamID == teamID && occ.RecurringExpenseID != nil && *occ.RecurringExpenseID == templateID {
			delete(m.occurrences, id)
			count++
		}
	}
	if t, ok := m.templates[templateID]; ok && t.TeamID == teamID {
		delete(m.templates, templateID)
	}
	return count, nil
}

func (m *MockRepository) ReplaceOccurrences(ctx context.Context, teamID, templateID string, preservePaid bool, occurrences []*expenses.Expense) (int, error) {
	if err := m.failOn["ReplaceOccurrences"]; err != nil {
		return 0, err
	}
	for id, occ := range m.occurrences {
		if occ.TeamID != teamID || occ.RecurringExpenseID == nil || *occ.RecurringExpenseID != templateID {
			continue
		}
		if preservePaid && occ.Status == expenses.StatusPaid {
			continue
		}
		delete(m.occurrences, id)
	}
	return m.CreateOccurrences(ctx, teamID, occurrences)
}
