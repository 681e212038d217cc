package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
	"github.com/samirrijal/routetiles/internal/core/usecases"
)

// DispatchActivities holds the activity implementations for the dispatch workflow.
type DispatchActivities struct {
	Requests ports.RequestPublisher
	Plans    ports.PlanRepository
	Cache    ports.CacheService // optional
}

// PublishRegion publishes one prefetch request.
func (a *DispatchActivities) PublishRegion(ctx context.Context, req domain.PrefetchRequest) error {
	if err := a.Requests.PublishRequest(ctx, req); err != nil {
		return fmt.Errorf("publish region %d of %s: %w", req.RegionIndex, req.PlanID, err)
	}
	return nil
}

// MarkDispatched records the dispatch time and drops the cached copy of the plan.
func (a *DispatchActivities) MarkDispatched(ctx context.Context, planID string) error {
	err := a.Plans.MarkDispatched(ctx, planID, time.Now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted while being dispatched; retrying cannot help.
		return temporal.NewNonRetryableApplicationError("plan not found", "NotFound", err)
	}
	if err != nil {
		return fmt.Errorf("mark %s dispatched: %w", planID, err)
	}

	if a.Cache != nil {
		_ = a.Cache.Delete(ctx, usecases.PlanCacheKey(planID))
	}
	return nil
}
