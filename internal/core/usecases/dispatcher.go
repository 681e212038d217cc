package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
)

// DirectDispatcher publishes every region of a plan straight to the broker
// and marks the plan dispatched once all regions were accepted.
type DirectDispatcher struct {
	requests ports.RequestPublisher
	plans    ports.PlanRepository
	now      func() time.Time
}

// NewDirectDispatcher creates a new DirectDispatcher.
func NewDirectDispatcher(requests ports.RequestPublisher, plans ports.PlanRepository) *DirectDispatcher {
	return &DirectDispatcher{requests: requests, plans: plans, now: time.Now}
}

// Dispatch implements ports.PrefetchDispatcher.
func (d *DirectDispatcher) Dispatch(ctx context.Context, plan *domain.PrefetchPlan) error {
	for _, r := range plan.Regions {
		if err := d.requests.PublishRequest(ctx, plan.RequestFor(r)); err != nil {
			return fmt.Errorf("publish region %d: %w", r.Index, err)
		}
	}

	at := d.now().UTC()
	if err := d.plans.MarkDispatched(ctx, plan.ID, at); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	plan.DispatchedAt = &at
	return nil
}
