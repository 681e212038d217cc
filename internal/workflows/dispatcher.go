package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// TemporalDispatcher implements ports.PrefetchDispatcher by starting a
// DispatchWorkflow. It returns once the workflow is started.
type TemporalDispatcher struct {
	client    client.Client
	taskQueue string
}

// NewTemporalDispatcher creates a new TemporalDispatcher.
func NewTemporalDispatcher(c client.Client, taskQueue string) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, taskQueue: taskQueue}
}

// Dispatch implements ports.PrefetchDispatcher.
func (d *TemporalDispatcher) Dispatch(ctx context.Context, plan *domain.PrefetchPlan) error {
	input := DispatchInput{PlanID: plan.ID, Requests: make([]domain.PrefetchRequest, len(plan.Regions))}
	for i, r := range plan.Regions {
		input.Requests[i] = plan.RequestFor(r)
	}

	_, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "dispatch-" + plan.ID,
		TaskQueue: d.taskQueue,
	}, DispatchWorkflow, input)
	if err != nil {
		return fmt.Errorf("start dispatch workflow: %w", err)
	}
	return nil
}
