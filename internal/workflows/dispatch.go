package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// DispatchInput is the input for the dispatch workflow.
type DispatchInput struct {
	PlanID   string
	Requests []domain.PrefetchRequest
}

// DispatchWorkflow publishes every region of a plan, each with its own retry
// budget, and marks the plan dispatched once all of them were published.
// Regions are published concurrently.
func DispatchWorkflow(ctx workflow.Context, input DispatchInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting dispatch workflow", "planID", input.PlanID, "regions", len(input.Requests))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(input.Requests))
	for i, req := range input.Requests {
		futures[i] = workflow.ExecuteActivity(ctx, "PublishRegion", req)
	}

	var firstErr error
	for i, f := range futures {
		if err := f.Get(ctx, nil); err != nil {
			logger.Warn("region not published", "region", input.Requests[i].RegionIndex, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}

	if err := workflow.ExecuteActivity(ctx, "MarkDispatched", input.PlanID).Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("Plan dispatched", "planID", input.PlanID)
	return nil
}
