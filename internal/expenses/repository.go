package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const expenseColumns = `
	id, team_id, recurring_expense_id,
	description, amount, category, vendor, notes,
	due_date, status, paid_at,
	created_at, updated_at
`

// repository implements Repository using PostgreSQL
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new expenses repository
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
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
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create creates a new one-off expense
func (r *repository) Create(ctx context.Context, teamID string, input *CreateExpenseInput) (*Expense, error) {
	status := StatusPending
	if input.Status != nil {
		status = *input.Status
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (
			id, team_id, recurring_expense_id,
			description, amount, category, vendor, notes,
			due_date, status
		)
		VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+expenseColumns,
		uuid.NewString(), teamID,
		input.Description, input.Amount, input.Category, input.Vendor, input.Notes,
		input.DueDate.Time, status,
	)

	return scanExpense(row)
}

// GetByID retrieves an expense by ID within the team scope
func (r *repository) GetByID(ctx context.Context, teamID, id string) (*Expense, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE id = $1 AND team_id = $2
	`, id, teamID)

	return scanExpense(row)
}

// List retrieves expenses for a team with optional filters
func (r *repository) List(ctx context.Context, teamID string, filters *ListFilters) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE team_id = $1
	`

	var conditions []string
	args := []interface{}{teamID}
	argIndex := 2

	if filters != nil {
		if filters.Status != nil {
			conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
			args = append(args, *filters.Status)
			argIndex++
		}
		if filters.Category != nil {
			conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
			args = append(args, *filters.Category)
			argIndex++
		}
		if filters.RecurringExpenseID != nil {
			conditions = append(conditions, fmt.Sprintf("recurring_expense_id = $%d", argIndex))
			args = append(args, *filters.RecurringExpenseID)
			argIndex++
		}
		if filters.DueFrom != nil {
			conditions = append(conditions, fmt.Sprintf("due_date >= $%d", argIndex))
			args = append(args, *filters.DueFrom)
			argIndex++
		}
		if filters.DueTo != nil {
			conditions = append(conditions, fmt.Sprintf("due_date <= $%d", argIndex))
			args = append(args, *filters.DueTo)
			argIndex++
		}
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY due_date ASC, created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Update updates an expense's descriptive fields
func (r *repository) Update(ctx context.Context, teamID, id string, input *UpdateExpenseInput) (*Expense, error) {
	var setClauses []string
	var args []interface{}
	argIndex := 1

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
	if input.DueDate != nil && input.DueDate.Valid {
		setClauses = append(setClauses, fmt.Sprintf("due_date = $%d", argIndex))
		args = append(args, input.DueDate.Time)
		argIndex++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, teamID, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id, teamID)

	query := fmt.Sprintf(`
		UPDATE expenses
		SET %s
		WHERE id = $%d AND team_id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIndex, argIndex+1, expenseColumns)

	return scanExpense(r.pool.QueryRow(ctx, query, args...))
}

// UpdateStatus transitions an expense to a new payment status
func (r *repository) UpdateStatus(ctx context.Context, teamID, id string, status Status, paidAt *time.Time) (*Expense, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE expenses
		SET status = $1, paid_at = $2, updated_at = $3
		WHERE id = $4 AND team_id = $5
		RETURNING `+expenseColumns,
		status, paidAt, time.Now(), id, teamID,
	)

	return scanExpense(row)
}

// Delete deletes an expense
func (r *repository) Delete(ctx context.Context, teamID, id string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM expenses
		WHERE id = $1 AND team_id = $2
	`, id, teamID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	return nil
}
