package recurring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/expenses"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTemplate(id, teamID string) *Template {
	return &Template{
		ID:          id,
		TeamID:      teamID,
		Frequency:   FrequencyMonthly,
		Interval:    1,
		DayOfMonth:  intPtr(15),
		StartDate:   date(2026, 1, 15),
		Description: "Office rent",
		Amount:      1200,
		Category:    "rent",
		IsActive:    true,
	}
}

// TestGeneratorBackfill tests that generated occurrences get paid status for
// past dates and pending for today and later
func TestGeneratorBackfill(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 3, 10) }

	template := testTemplate("tpl-rent", "team-1")
	end := date(2026, 5, 15)
	template.EndDate = &end
	repo.templates[template.ID] = template

	occs, err := gen.Generate(context.Background(), "team-1", template)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Jan 15 through May 15: 5 occurrences.
	if len(occs) != 5 {
		t.Fatalf("occurrences = %d, want 5", len(occs))
	}

	var paid, pending int
	for _, occ := range occs {
		switch occ.Status {
		case expenses.StatusPaid:
			paid++
			if !occ.DueDate.Before(date(2026, 3, 10)) {
				t.Errorf("paid occurrence %v is not in the past", occ.DueDate)
			}
		case expenses.StatusPending:
			pending++
		default:
			t.Errorf("unexpected status %q", occ.Status)
		}
	}
	if paid != 2 || pending != 3 {
		t.Errorf("paid = %d pending = %d, want 2 and 3", paid, pending)
	}
}

// TestGeneratorBackfillBoundary tests that an occurrence due exactly now is
// pending, not paid
func TestGeneratorBackfillBoundary(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 1, 15) }

	template := testTemplate("tpl-1", "team-1")
	end := date(2026, 1, 15)
	template.EndDate = &end
	repo.templates[template.ID] = template

	occs, err := gen.Generate(context.Background(), "team-1", template)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("occurrences = %d, want 1", len(occs))
	}
	if occs[0].Status != expenses.StatusPending {
		t.Errorf("status = %q, want pending", occs[0].Status)
	}
}

// TestGeneratorOccurrenceFields tests that template fields are copied onto
// every generated occurrence
func TestGeneratorOccurrenceFields(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 1, 1) }

	vendor := "ACME Properties"
	template := testTemplate("tpl-1", "team-1")
	template.Vendor = &vendor
	end := date(2026, 3, 15)
	template.EndDate = &end
	repo.templates[template.ID] = template

	occs, err := gen.Generate(context.Background(), "team-1", template)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, occ := range occs {
		if occ.Description != template.Description {
			t.Errorf("description = %q, want %q", occ.Description, template.Description)
		}
		if occ.Amount != template.Amount {
			t.Errorf("amount = %v, want %v", occ.Amount, template.Amount)
		}
		if occ.Category != template.Category {
			t.Errorf("category = %q, want %q", occ.Category, template.Category)
		}
		if occ.Vendor == nil || *occ.Vendor != vendor {
			t.Errorf("vendor = %v, want %q", occ.Vendor, vendor)
		}
		if occ.RecurringExpenseID == nil || *occ.RecurringExpenseID != template.ID {
			t.Errorf("recurring_expense_id = %v, want %q", occ.RecurringExpenseID, template.ID)
		}
	}
}

// TestGeneratorZeroOccurrences tests that a rule yielding no dates is a valid
// outcome, not an error
func TestGeneratorZeroOccurrences(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 1, 1) }

	// Start beyond the generation horizon.
	template := testTemplate("tpl-1", "team-1")
	template.StartDate = date(2029, 6, 1)
	repo.templates[template.ID] = template

	occs, err := gen.Generate(context.Background(), "team-1", template)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(occs) != 0 {
		t.Errorf("occurrences = %d, want 0", len(occs))
	}
	if len(repo.occurrences) != 0 {
		t.Errorf("stored occurrences = %d, want 0", len(repo.occurrences))
	}
}

// TestGeneratorRejectsInvalidRule tests rule validation before generation
func TestGeneratorRejectsInvalidRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr error
	}{
		{
			name:    "bad frequency",
			mutate:  func(tpl *Template) { tpl.Frequency = "daily" },
			wantErr: ErrInvalidFrequency,
		},
		{
			name:    "zero interval",
			mutate:  func(tpl *Template) { tpl.Interval = 0 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "day of month out of range",
			mutate:  func(tpl *Template) { tpl.DayOfMonth = intPtr(32) },
			wantErr: ErrInvalidDayOfMonth,
		},
		{
			name: "end before start",
			mutate: func(tpl *Template) {
				end := tpl.StartDate.AddDate(0, 0, -1)
				tpl.EndDate = &end
			},
			wantErr: ErrEndBeforeStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRepository()
			gen := NewGenerator(repo, testLogger())

			template := testTemplate("tpl-1", "team-1")
			tt.mutate(template)

			_, err := gen.Generate(context.Background(), "team-1", template)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if len(repo.occurrences) != 0 {
				t.Errorf("stored occurrences = %d, want 0", len(repo.occurrences))
			}
		})
	}
}

// TestGeneratorRejectsInvalidOccurrence tests that a template producing
// malformed rows fails before anything is written
func TestGeneratorRejectsInvalidOccurrence(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 1, 1) }

	template := testTemplate("tpl-1", "team-1")
	template.Description = "" // rule is fine, rows are not

	_, err := gen.Generate(context.Background(), "team-1", template)
	if !errors.Is(err, expenses.ErrDescriptionRequired) {
		t.Errorf("Generate() error = %v, want %v", err, expenses.ErrDescriptionRequired)
	}
	if len(repo.occurrences) != 0 {
		t.Errorf("stored occurrences = %d, want 0", len(repo.occurrences))
	}
}

// TestGeneratorTracking tests that generation bookkeeping lands on the template
func TestGeneratorTracking(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	now := date(2026, 3, 10)
	gen.now = func() time.Time { return now }

	template := testTemplate("tpl-1", "team-1")
	end := date(2026, 5, 15)
	template.EndDate = &end
	repo.templates[template.ID] = template

	if _, err := gen.Generate(context.Background(), "team-1", template); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	stored := repo.templates[template.ID]
	if stored.GeneratedCount != 5 {
		t.Errorf("generated_count = %d, want 5", stored.GeneratedCount)
	}
	if stored.LastGenerated == nil || !stored.LastGenerated.Equal(now) {
		t.Errorf("last_generated = %v, want %v", stored.LastGenerated, now)
	}
	wantNext := date(2026, 3, 15)
	if stored.NextDue == nil || !stored.NextDue.Equal(wantNext) {
		t.Errorf("next_due = %v, want %v", stored.NextDue, wantNext)
	}
}

// TestGeneratorWriteFailure tests that a failed batch write surfaces the error
func TestGeneratorWriteFailure(t *testing.T) {
	repo := NewMockRepository()
	gen := NewGenerator(repo, testLogger())
	gen.now = func() time.Time { return date(2026, 1, 1) }

	wantErr := errors.New("connection reset")
	repo.FailOn("CreateOccurrences", wantErr)

	template := testTemplate("tpl-1", "team-1")
	repo.templates[template.ID] = template

	_, err := gen.Generate(context.Background(), "team-1", template)
	if !errors.Is(err, wantErr) {
		t.Errorf("Generate() error = %v, want %v", err, wantErr)
	}
	if len(repo.occurrences) != 0 {
		t.Errorf("stored occurrences = %d, want 0", len(repo.occurrences))
	}
}
