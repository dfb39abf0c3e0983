package recurring

import (
	"errors"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/expenses"
)

func nullableDate(t time.Time) *expenses.NullableDate {
	return &expenses.NullableDate{Time: t, Valid: true}
}

func validCreateInput() *CreateTemplateInput {
	return &CreateTemplateInput{
		Frequency:   FrequencyMonthly,
		Interval:    1,
		DayOfMonth:  intPtr(15),
		StartDate:   nullableDate(date(2026, 1, 15)),
		Description: "Office rent",
		Amount:      1200,
		Category:    "rent",
	}
}

// TestFrequencyValidate tests frequency validation
func TestFrequencyValidate(t *testing.T) {
	valid := []Frequency{FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual}
	for _, f := range valid {
		if err := f.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", f, err)
		}
	}

	invalid := []Frequency{"", "daily", "MONTHLY", "yearly"}
	for _, f := range invalid {
		if err := f.Validate(); !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("Validate(%q) = %v, want %v", f, err, ErrInvalidFrequency)
		}
	}
}

// TestScopeValidate tests scope validation
func TestScopeValidate(t *testing.T) {
	valid := []Scope{ScopeSingle, ScopeFuture, ScopeAll}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", s, err)
		}
	}

	invalid := []Scope{"", "everything", "SINGLE"}
	for _, s := range invalid {
		if err := s.Validate(); !errors.Is(err, ErrInvalidScope) {
			t.Errorf("Validate(%q) = %v, want %v", s, err, ErrInvalidScope)
		}
	}
}

// TestCreateTemplateInputValidate tests create input validation
func TestCreateTemplateInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateTemplateInput)
		wantErr error
	}{
		{
			name:    "valid input",
			mutate:  func(i *CreateTemplateInput) {},
			wantErr: nil,
		},
		{
			name:    "missing description",
			mutate:  func(i *CreateTemplateInput) { i.Description = "" },
			wantErr: ErrDescriptionRequired,
		},
		{
			name:    "zero amount",
			mutate:  func(i *CreateTemplateInput) { i.Amount = 0 },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(i *CreateTemplateInput) { i.Amount = -10 },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "missing category",
			mutate:  func(i *CreateTemplateInput) { i.Category = "" },
			wantErr: ErrCategoryRequired,
		},
		{
			name:    "bad frequency",
			mutate:  func(i *CreateTemplateInput) { i.Frequency = "daily" },
			wantErr: ErrInvalidFrequency,
		},
		{
			name:    "zero interval",
			mutate:  func(i *CreateTemplateInput) { i.Interval = 0 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "day of month zero",
			mutate:  func(i *CreateTemplateInput) { i.DayOfMonth = intPtr(0) },
			wantErr: ErrInvalidDayOfMonth,
		},
		{
			name:    "day of month 32",
			mutate:  func(i *CreateTemplateInput) { i.DayOfMonth = intPtr(32) },
			wantErr: ErrInvalidDayOfMonth,
		},
		{
			name:    "missing start date",
			mutate:  func(i *CreateTemplateInput) { i.StartDate = nil },
			wantErr: ErrStartDateRequired,
		},
		{
			name: "end before start",
			mutate: func(i *CreateTemplateInput) {
				i.EndDate = nullableDate(date(2026, 1, 14))
			},
			wantErr: ErrEndBeforeStart,
		},
		{
			name: "end equal to start is allowed",
			mutate: func(i *CreateTemplateInput) {
				i.EndDate = nullableDate(date(2026, 1, 15))
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validCreateInput()
			tt.mutate(input)

			err := input.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestSeriesPatchValidate tests series patch validation
func TestSeriesPatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		patch   SeriesPatch
		wantErr error
	}{
		{
			name:    "empty patch",
			patch:   SeriesPatch{},
			wantErr: ErrEmptyPatch,
		},
		{
			name:    "amount only",
			patch:   SeriesPatch{Amount: floatPtr(99)},
			wantErr: nil,
		},
		{
			name:    "zero amount",
			patch:   SeriesPatch{Amount: floatPtr(0)},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "empty description",
			patch:   SeriesPatch{Description: strPtr("")},
			wantErr: ErrDescriptionRequired,
		},
		{
			name:    "empty category",
			patch:   SeriesPatch{Category: strPtr("")},
			wantErr: ErrCategoryRequired,
		},
		{
			name:    "notes only",
			patch:   SeriesPatch{Notes: strPtr("split with sub-tenant")},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestUpdateTemplateInputValidate tests partial update validation
func TestUpdateTemplateInputValidate(t *testing.T) {
	freq := Frequency("daily")
	if err := (&UpdateTemplateInput{Frequency: &freq}).Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("error = %v, want %v", err, ErrInvalidFrequency)
	}
	if err := (&UpdateTemplateInput{Interval: intPtr(0)}).Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("error = %v, want %v", err, ErrInvalidInterval)
	}
	if err := (&UpdateTemplateInput{Amount: floatPtr(-5)}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("error = %v, want %v", err, ErrInvalidAmount)
	}
	if err := (&UpdateTemplateInput{}).Validate(); err != nil {
		t.Errorf("empty update error = %v, want nil", err)
	}
}
