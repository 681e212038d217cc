package ports

import (
	"context"
	"time"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// PlanRepository persists prefetch plans and their regions.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.PrefetchPlan) error
	GetByID(ctx context.Context, id string) (*domain.PrefetchPlan, error)
	// List returns one page of plans, newest first, and the total number of plans.
	List(ctx context.Context, limit, offset int) ([]domain.PrefetchPlan, int, error)
	Delete(ctx context.Context, id string) error
	MarkDispatched(ctx context.Context, id string, at time.Time) error
}

// ProgressRepository keeps the latest progress report of every region.
type ProgressRepository interface {
	Upsert(ctx context.Context, p *domain.Progress) error
	ListByPlan(ctx context.Context, planID string) ([]domain.Progress, error)
}
