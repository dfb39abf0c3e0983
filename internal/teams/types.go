package teams

import (
	"context"
	"errors"
	"time"
)

// Errors for team operations
var (
	ErrTeamNotFound  = errors.New("team not found")
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrNameRequired  = errors.New("name is required")
)

// Team is the tenant boundary: every template, expense, and audit entry
// belongs to exactly one team, and every query is scoped by its id.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTeamInput represents input for creating a team
type CreateTeamInput struct {
	Name string `json:"name"`
}

// Validate validates the create team input
func (i *CreateTeamInput) Validate() error {
	if i.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// Repository defines the interface for team data access
type Repository interface {
	Create(ctx context.Context, input *CreateTeamInput) (*Team, error)
	GetByID(ctx context.Context, id string) (*Team, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Team, error)
}

type contextKey struct{}

// NewContext returns a context carrying the authenticated team
func NewContext(ctx context.Context, team *Team) context.Context {
	return context.WithValue(ctx, contextKey{}, team)
}

// FromContext extracts the authenticated team from the context
func FromContext(ctx context.Context) (*Team, bool) {
	team, ok := ctx.Value(contextKey{}).(*Team)
	return team, ok
}
