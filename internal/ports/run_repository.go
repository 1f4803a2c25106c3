package ports

import (
	"context"
	"sla-attribution-service/internal/domain"
)

// Port: a boundary for persisting analysis runs for later audit.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	// Return domain.ErrRunNotFound when no run has the id.
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	// Return the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
}
