package recurring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arqcashflow/backend/internal/expenses"
)

const templateColumns = `
	id, team_id,
	frequency, "interval", day_of_month, start_date, end_date,
	description, amount, category, vendor, notes,
	is_active, next_due, last_generated, generated_count,
	created_at, updated_at
`

var occurrenceCopyColumns = []string{
	"id", "team_id", "recurring_expense_id",
	"description", "amount", "category", "vendor", "notes",
	"due_date", "status", "created_at", "updated_at",
}

// repository implements Repository using PostgreSQL. Occurrences live in the
// expenses table; every statement is scoped by team_id.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new recurring expenses repository
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(
		&t.ID,
		&t.TeamID,
		&t.Frequency,
		&t.Interval,
		&t.DayOfMonth,
		&t.StartDate,
		&t.EndDate,
		&t.Description,
		&t.Amount,
		&t.Category,
		&t.Vendor,
		&t.Notes,
		&t.IsActive,
		&t.NextDue,
		&t.LastGenerated,
		&t.GeneratedCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTemplate creates a new recurring expense template
func (r *repository) CreateTemplate(ctx context.Context, teamID string, input *CreateTemplateInput) (*Template, error) {
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	var endDate *time.Time
	if input.EndDate != nil {
		endDate = input.EndDate.ToTimePtr()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO recurring_expenses (
			id, team_id,
			frequency, "interval", day_of_month, start_date, end_date,
			description, amount, category, vendor, notes,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+templateColumns,
		uuid.NewString(), teamID,
		input.Frequency, input.Interval, input.DayOfMonth, input.StartDate.Time, endDate,
		input.Description, input.Amount, input.Category, input.Vendor, input.Notes,
		isActive,
	)

	return scanTemplate(row)
}

// GetTemplate retrieves a template by ID within the team scope
func (r *repository) GetTemplate(ctx context.Context, teamID, id string) (*Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_expenses
		WHERE id = $1 AND team_id = $2
	`, id, teamID)

	return scanTemplate(row)
}

// ListTemplates retrieves templates for a team with optional filters
func (r *repository) ListTemplates(ctx context.Context, teamID string, filters *ListTemplatesFilters) ([]*Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_expenses
		WHERE team_id = $1
	`

	var conditions []string
	args := []interface{}{teamID}
	argIndex := 2

	if filters != nil {
		if filters.IsActive != nil {
			conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
			args = append(args, *filters.IsActive)
			argIndex++
		}
		if filters.Category != nil {
			conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
			args = append(args, *filters.Category)
			argIndex++
		}
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY description ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// UpdateTemplate updates a template
func (r *repository) UpdateTemplate(ctx context.Context, teamID, id string, input *UpdateTemplateInput) (*Template, error) {
	var setClauses []string
	var args []interface{}
	argIndex := 1

	if input.Frequency != nil {
		setClauses = append(setClauses, fmt.Sprintf("frequency = $%d", argIndex))
		args = append(args, *input.Frequency)
		argIndex++
	}
	if input.Interval != nil {
		setClauses = append(setClauses, fmt.Sprintf(`"interval" = $%d`, argIndex))
		args = append(args, *input.Interval)
		argIndex++
	}
	if input.DayOfMonth != nil {
		setClauses = append(setClauses, fmt.Sprintf("day_of_month = $%d", argIndex))
		args = append(args, *input.DayOfMonth)
		argIndex++
	}
	if input.StartDate != nil && input.StartDate.Valid {
		setClauses = append(setClauses, fmt.Sprintf("start_date = $%d", argIndex))
		args = append(args, input.StartDate.Time)
		argIndex++
	}
	if input.EndDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_date = $%d", argIndex))
		if input.EndDate.Valid {
			args = append(args, input.EndDate.Time)
		} else {
			// end_date: null clears the bound
			args = append(args, nil)
		}
		argIndex++
	}
	if input.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, *input.Description)
		argIndex++
	}
	if input.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", argIndex))
		args = append(args, *input.Amount)
		argIndex++
	}
	if input.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *input.Category)
		argIndex++
	}
	if input.Vendor != nil {
		setClauses = append(setClauses, fmt.Sprintf("vendor = $%d", argIndex))
		args = append(args, *input.Vendor)
		argIndex++
	}
	if input.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *input.Notes)
		argIndex++
	}
	if input.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *input.IsActive)
		argIndex++
	}

	if len(setClauses) == 0 {
		return r.GetTemplate(ctx, teamID, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id, teamID)

	query := fmt.Sprintf(`
		UPDATE recurring_expenses
		SET %s
		WHERE id = $%d AND team_id = $%d
	`, strings.Join(setClauses, ", "), argIndex, argIndex+1)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, ErrTemplateNotFound
	}

	return r.GetTemplate(ctx, teamID, id)
}

// UpdateGenerationTracking updates the template's series bookkeeping
func (r *repository) UpdateGenerationTracking(ctx context.Context, teamID, id string, lastGenerated time.Time, nextDue *time.Time, generatedCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE recurring_expenses
		SET last_generated = $1,
		    next_due = $2,
		    generated_count = $3,
		    updated_at = $4
		WHERE id = $5 AND team_id = $6
	`, lastGenerated, nextDue, generatedCount, time.Now(), id, teamID)

	return err
}

// copyOccurrences bulk-inserts occurrence rows within a transaction,
// assigning ids and timestamps client-side so no RETURNING pass is needed.
func copyOccurrences(ctx context.Context, tx pgx.Tx, teamID string, occurrences []*expenses.Expense) (int, error) {
	now := time.Now()
	for _, occ := range occurrences {
		occ.ID = uuid.NewString()
		occ.TeamID = teamID
		occ.CreatedAt = now
		occ.UpdatedAt = now
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"expenses"},
		occurrenceCopyColumns,
		pgx.CopyFromSlice(len(occurrences), func(i int) ([]interface{}, error) {
			occ := occurrences[i]
			return []interface{}{
				occ.ID, occ.TeamID, occ.RecurringExpenseID,
				occ.Description, occ.Amount, occ.Category, occ.Vendor, occ.Notes,
				occ.DueDate, occ.Status, occ.CreatedAt, occ.UpdatedAt,
			}, nil
		}),
	)
	if err != nil {
		return 0, err
	}

	return int(copied), nil
}

// CreateOccurrences inserts a batch of occurrences in one transaction
func (r *repository) CreateOccurrences(ctx context.Context, teamID string, occurrences []*expenses.Expense) (int, error) {
	if len(occurrences) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	count, err := copyOccurrences(ctx, tx, teamID, occurrences)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return count, nil
}

// GetOccurrence retrieves one occurrence, verifying it belongs to the
// template within the team scope
func (r *repository) GetOccurrence(ctx context.Context, teamID, templateID, occurrenceID string) (*expenses.Expense, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, team_id, recurring_expense_id,
		       description, amount, category, vendor, notes,
		       due_date, status, paid_at,
		       created_at, updated_at
		FROM expenses
		WHERE id = $1 AND team_id = $2 AND recurring_expense_id = $3
	`, occurrenceID, teamID, templateID)

	occ, err := scanOccurrence(row)
	if err != nil {
		return nil, err
	}
	return occ, nil
}

func scanOccurrence(row pgx.Row) (*expenses.Expense, error) {
	var e expenses.Expense
	err := row.Scan(
		&e.ID,
		&e.TeamID,
		&e.RecurringExpenseID,
		&e.Description,
		&e.Amount,
		&e.Category,
		&e.Vendor,
		&e.Notes,
		&e.DueDate,
		&e.Status,
		&e.PaidAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOccurrenceNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListOccurrences retrieves a template's occurrences with an optional filter
func (r *repository) ListOccurrences(ctx context.Context, teamID, templateID string, filter *OccurrenceFilter) ([]*expenses.Expense, error) {
	query := `
		SELECT id, team_id, recurring_expense_id,
		       description, amount, category, vendor, notes,
		       due_date, status, paid_at,
		       created_at, updated_at
		FROM expenses
		WHERE team_id = $1 AND recurring_expense_id = $2
	`

	args := []interface{}{teamID, templateID}
	argIndex := 3

	if filter != nil {
		if filter.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", argIndex)
			args = append(args, *filter.Status)
			argIndex++
		}
		if filter.DueFrom != nil {
			query += fmt.Sprintf(" AND due_date >= $%d", argIndex)
			args = append(args, *filter.DueFrom)
			argIndex++
		}
	}

	query += " ORDER BY due_date ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occurrences []*expenses.Expense
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occ)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return occurrences, nil
}

// patchClauses builds the SET clauses for a series patch
func patchClauses(patch *SeriesPatch, argIndex int) ([]string, []interface{}, int) {
	var setClauses []string
	var args []interface{}

	if patch.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", argIndex))
		args = append(args, *patch.Amount)
		argIndex++
	}
	if patch.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, *patch.Description)
		argIndex++
	}
	if patch.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *patch.Category)
		argIndex++
	}
	if patch.Vendor != nil {
		setClauses = append(setClauses, fmt.Sprintf("vendor = $%d", argIndex))
		args = append(args, *patch.Vendor)
		argIndex++
	}
	if patch.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *patch.Notes)
		argIndex++
	}

	return setClauses, args, argIndex
}

// UpdateOccurrences applies a patch to the given occurrences in one statement
func (r *repository) UpdateOccurrences(ctx context.Context, teamID string, ids []string, patch *SeriesPatch) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	setClauses, args, argIndex := patchClauses(patch, 1)
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, ids, teamID)

	query := fmt.Sprintf(`
		UPDATE expenses
		SET %s
		WHERE id = ANY($%d) AND team_id = $%d
	`, strings.Join(setClauses, ", "), argIndex, argIndex+1)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

// DeleteOccurrences deletes the given occurrences in one statement
func (r *repository) DeleteOccurrences(ctx context.Context, teamID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
		DELETE FROM expenses
		WHERE id = ANY($1) AND team_id = $2
	`, ids, teamID)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

// DeleteFutureOccurrences deletes the given occurrences and deactivates the
// template in one transaction
func (r *repository) DeleteFutureOccurrences(ctx context.Context, teamID, templateID string, ids []string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var deleted int64
	if len(ids) > 0 {
		result, err := tx.Exec(ctx, `
			DELETE FROM expenses
			WHERE id = ANY($1) AND team_id = $2 AND recurring_expense_id = $3
		`, ids, teamID, templateID)
		if err != nil {
			return 0, err
		}
		deleted = result.RowsAffected()
	}

	if _, err := tx.Exec(ctx, `
		UPDATE recurring_expenses
		SET is_active = false, next_due = NULL, updated_at = $1
		WHERE id = $2 AND team_id = $3
	`, time.Now(), templateID, teamID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return int(deleted), nil
}

// DeleteSeriesCascade deletes every occurrence of the template and the
// template itself in one transaction
func (r *repository) DeleteSeriesCascade(ctx context.Context, teamID, templateID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		DELETE FROM expenses
		WHERE recurring_expense_id = $1 AND team_id = $2
	`, templateID, teamID)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM recurring_expenses
		WHERE id = $1 AND team_id = $2
	`, templateID, teamID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

// ReplaceOccurrences swaps the template's occurrence set for a new batch in
// one transaction, optionally keeping paid rows untouched
func (r *repository) ReplaceOccurrences(ctx context.Context, teamID, templateID string, preservePaid bool, occurrences []*expenses.Expense) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	deleteQuery := `
		DELETE FROM expenses
		WHERE recurring_expense_id = $1 AND team_id = $2
	`
	if preservePaid {
		deleteQuery += " AND status <> 'paid'"
	}
	if _, err := tx.Exec(ctx, deleteQuery, templateID, teamID); err != nil {
		return 0, err
	}

	var count int
	if len(occurrences) > 0 {
		count, err = copyOccurrences(ctx, tx, teamID, occurrences)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return count, nil
}
