package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
	"github.com/samirrijal/routetiles/internal/pkg/metrics"
	"github.com/samirrijal/routetiles/internal/pkg/telemetry"
)

// PlanGetter looks up a plan by ID. *PlanService satisfies it.
type PlanGetter interface {
	GetByID(ctx context.Context, id string) (*domain.PrefetchPlan, error)
}

// ProgressService tracks download progress reported for each region of a plan.
type ProgressService struct {
	plans     PlanGetter
	progress  ports.ProgressRepository
	publisher ports.ProgressPublisher
	now       func() time.Time
}

// NewProgressService creates a new ProgressService. publisher may be nil.
func NewProgressService(plans PlanGetter, progress ports.ProgressRepository, publisher ports.ProgressPublisher) *ProgressService {
	return &ProgressService{plans: plans, progress: progress, publisher: publisher, now: time.Now}
}

// Record stores p as the latest report of its region, replacing any earlier
// one, and returns the updated plan aggregate.
func (s *ProgressService) Record(ctx context.Context, p domain.Progress) (domain.PlanProgress, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanProgressRecord, trace.WithAttributes(
		attribute.String(telemetry.AttrPlanID, p.PlanID),
	))
	defer span.End()

	if err := p.Validate(); err != nil {
		metrics.ProgressReports.WithLabelValues("rejected").Inc()
		return domain.PlanProgress{}, err
	}

	plan, err := s.plans.GetByID(ctx, p.PlanID)
	if err != nil {
		metrics.ProgressReports.WithLabelValues("rejected").Inc()
		return domain.PlanProgress{}, fmt.Errorf("load plan: %w", err)
	}
	if p.RegionIndex >= len(plan.Regions) {
		metrics.ProgressReports.WithLabelValues("rejected").Inc()
		return domain.PlanProgress{}, fmt.Errorf("%w: region %d outside plan of %d regions",
			domain.ErrInvalidArgument, p.RegionIndex, len(plan.Regions))
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now().UTC()
	}

	if err := s.progress.Upsert(ctx, &p); err != nil {
		span.RecordError(err)
		return domain.PlanProgress{}, fmt.Errorf("store progress: %w", err)
	}
	metrics.ProgressReports.WithLabelValues("accepted").Inc()

	summary, err := s.summarize(ctx, plan)
	if err != nil {
		return domain.PlanProgress{}, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSummary(ctx, summary); err != nil {
			slog.Warn("publish progress summary", "plan_id", plan.ID, "error", err)
		}
	}
	return summary, nil
}

// Summary returns the aggregate progress of a plan.
func (s *ProgressService) Summary(ctx context.Context, planID string) (domain.PlanProgress, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return domain.PlanProgress{}, err
	}
	return s.summarize(ctx, plan)
}

// HandleReport is the broker callback for progress reports. Reports that can
// never succeed are dropped so the broker does not redeliver them.
func (s *ProgressService) HandleReport(ctx context.Context, p *domain.Progress) error {
	_, err := s.Record(ctx, *p)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNotFound):
		slog.Warn("dropping progress report", "plan_id", p.PlanID, "region", p.RegionIndex, "error", err)
		return nil
	default:
		return err
	}
}

func (s *ProgressService) summarize(ctx context.Context, plan *domain.PrefetchPlan) (domain.PlanProgress, error) {
	reports, err := s.progress.ListByPlan(ctx, plan.ID)
	if err != nil {
		return domain.PlanProgress{}, fmt.Errorf("list progress: %w", err)
	}
	return domain.Summarize(plan.ID, len(plan.Regions), reports), nil
}
