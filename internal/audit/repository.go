package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repository implements Repository using PostgreSQL
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit log repository
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Create inserts a new audit log entry
func (r *repository) Create(ctx context.Context, input *LogInput) (*AuditLog, error) {
	var log AuditLog
	err := r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (
			id, team_id, action, resource_type, resource_id,
			metadata, success, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, team_id, created_at, action, resource_type, resource_id,
		          metadata, success, error_message
	`,
		uuid.NewString(), input.TeamID, input.Action, input.ResourceType, input.ResourceID,
		input.Metadata, input.Success, input.ErrorMessage,
	).Scan(
		&log.ID,
		&log.TeamID,
		&log.CreatedAt,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&log.Metadata,
		&log.Success,
		&log.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// List retrieves audit logs with filters, returning the page and total count
func (r *repository) List(ctx context.Context, filters *ListFilters) ([]*AuditLog, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filters != nil {
		if filters.TeamID != nil {
			conditions = append(conditions, fmt.Sprintf("team_id = $%d", argIndex))
			args = append(args, *filters.TeamID)
			argIndex++
		}
		if filters.Action != nil {
			conditions = append(conditions, fmt.Sprintf("action = $%d", argIndex))
			args = append(args, *filters.Action)
			argIndex++
		}
		if filters.ResourceType != nil {
			conditions = append(conditions, fmt.Sprintf("resource_type = $%d", argIndex))
			args = append(args, *filters.ResourceType)
			argIndex++
		}
		if filters.ResourceID != nil {
			conditions = append(conditions, fmt.Sprintf("resource_id = $%d", argIndex))
			args = append(args, *filters.ResourceID)
			argIndex++
		}
		if filters.StartTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
			args = append(args, *filters.StartTime)
			argIndex++
		}
		if filters.EndTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
			args = append(args, *filters.EndTime)
			argIndex++
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := 50
	if filters != nil && filters.Limit > 0 {
		limit = filters.Limit
	}
	offset := 0
	if filters != nil && filters.Offset > 0 {
		offset = filters.Offset
	}

	query := fmt.Sprintf(`
		SELECT id, team_id, created_at, action, resource_type, resource_id,
		       metadata, success, error_message
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*AuditLog
	for rows.Next() {
		var log AuditLog
		err := rows.Scan(
			&log.ID,
			&log.TeamID,
			&log.CreatedAt,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.Metadata,
			&log.Success,
			&log.ErrorMessage,
		)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// DeleteOlderThan deletes audit logs created before the given time
func (r *repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
