package teams

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repository implements Repository using PostgreSQL
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new teams repository
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Create creates a new team with a fresh API key
func (r *repository) Create(ctx context.Context, input *CreateTeamInput) (*Team, error) {
	var team Team
	err := r.pool.QueryRow(ctx, `
		INSERT INTO teams (id, name, api_key)
		VALUES ($1, $2, $3)
		RETURNING id, name, api_key, created_at
	`, uuid.NewString(), input.Name, uuid.NewString()).Scan(
		&team.ID,
		&team.Name,
		&team.APIKey,
		&team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByID retrieves a team by ID
func (r *repository) GetByID(ctx context.Context, id string) (*Team, error) {
	var team Team
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, api_key, created_at
		FROM teams
		WHERE id = $1
	`, id).Scan(
		&team.ID,
		&team.Name,
		&team.APIKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetByAPIKey resolves a team from its API key
func (r *repository) GetByAPIKey(ctx context.Context, apiKey string) (*Team, error) {
	var team Team
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, api_key, created_at
		FROM teams
		WHERE api_key = $1
	`, apiKey).Scan(
		&team.ID,
		&team.Name,
		&team.APIKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	return &team, nil
}
