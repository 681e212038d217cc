package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
	"github.com/samirrijal/routetiles/internal/core/tiling"
	"github.com/samirrijal/routetiles/internal/pkg/metrics"
	"github.com/samirrijal/routetiles/internal/pkg/telemetry"
)

const planCacheTTL = 600 // seconds

// PlanService turns tracks into stored, dispatched prefetch plans.
type PlanService struct {
	planner    *tiling.Planner
	loader     ports.TrackLoader
	plans      ports.PlanRepository
	cache      ports.CacheService
	dispatcher ports.PrefetchDispatcher
	now        func() time.Time
}

// NewPlanService creates a new PlanService. cache and dispatcher may be nil;
// without a dispatcher plans are stored but never handed to the downloader.
func NewPlanService(
	planner *tiling.Planner,
	loader ports.TrackLoader,
	plans ports.PlanRepository,
	cache ports.CacheService,
	dispatcher ports.PrefetchDispatcher,
) *PlanService {
	return &PlanService{
		planner:    planner,
		loader:     loader,
		plans:      plans,
		cache:      cache,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// PreviewFile plans every track of a GPX or FIT file without storing anything.
func (s *PlanService) PreviewFile(ctx context.Context, name string, r io.Reader, settings domain.PlanSettings) ([]*domain.PrefetchPlan, error) {
	return s.fromFile(ctx, name, r, settings, nil)
}

// CreateFromFile plans, stores and dispatches every track of a GPX or FIT file.
// Tracks that cannot be planned or stored are logged and skipped; the first
// such error is returned only when no plan could be created at all.
func (s *PlanService) CreateFromFile(ctx context.Context, name string, r io.Reader, settings domain.PlanSettings) ([]*domain.PrefetchPlan, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlanCreate)
	defer span.End()

	plans, err := s.fromFile(ctx, name, r, settings, func(ctx context.Context, plan *domain.PrefetchPlan) error {
		if err := s.plans.Create(ctx, plan); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		metrics.PlansCreated.Inc()
		s.dispatch(ctx, plan)
		s.cachePlan(ctx, plan)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrPlans, len(plans)))
	return plans, nil
}

// fromFile drains the loader and plans each track. store, when set, runs for
// every planned track; a track it fails on is left out like one that could
// not be planned, so plans already stored are still returned.
func (s *PlanService) fromFile(
	ctx context.Context,
	name string,
	r io.Reader,
	settings domain.PlanSettings,
	store func(context.Context, *domain.PrefetchPlan) error,
) ([]*domain.PrefetchPlan, error) {
	// Cancelling stops the loader goroutine if we bail out early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		out      []*domain.PrefetchPlan
		firstErr error
	)
	for res := range s.loader.Load(ctx, r) {
		if res.Err != nil {
			slog.Warn("track skipped", "name", res.Track.Name, "error", res.Err)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}

		track := res.Track
		if track.Name == "" {
			track.Name = name
		}

		plan, err := s.Preview(ctx, track, settings)
		if err != nil {
			slog.Warn("track not planned", "name", track.Name, "points", track.Len(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if store != nil {
			if err := store(ctx, plan); err != nil {
				slog.Error("track not stored", "name", track.Name, "plan_id", plan.ID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		out = append(out, plan)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if firstErr == nil {
			firstErr = domain.ErrEmptyTrack
		}
		return nil, firstErr
	}
	return out, nil
}

// Preview plans a single track and assigns it an ID. Nothing is stored.
func (s *PlanService) Preview(ctx context.Context, track domain.Track, settings domain.PlanSettings) (*domain.PrefetchPlan, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlanPreview, trace.WithAttributes(
		attribute.String(telemetry.AttrTrackName, track.Name),
		attribute.Int(telemetry.AttrTrackPoints, track.Len()),
	))
	defer span.End()

	start := time.Now()
	plan, err := s.planner.Plan(track, settings)
	metrics.PlanningDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	plan.ID = uuid.NewString()
	plan.CreatedAt = s.now().UTC()

	metrics.TrackPoints.Observe(float64(plan.PointCount))
	metrics.RegionsPlanned.Add(float64(len(plan.Regions)))
	metrics.PolarRegionsSkipped.Add(float64(plan.Skipped))

	span.SetAttributes(
		attribute.String(telemetry.AttrPlanID, plan.ID),
		attribute.Int(telemetry.AttrRegions, len(plan.Regions)),
		attribute.Int64(telemetry.AttrTiles, plan.TileCount),
		attribute.Int(telemetry.AttrSkipped, plan.Skipped),
	)
	return plan, nil
}

// GetByID returns a stored plan.
func (s *PlanService) GetByID(ctx context.Context, id string) (*domain.PrefetchPlan, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: plan id is required", domain.ErrInvalidArgument)
	}

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, PlanCacheKey(id)); err == nil {
			var plan domain.PrefetchPlan
			if err := json.Unmarshal(data, &plan); err == nil {
				metrics.CacheHits.WithLabelValues("plan").Inc()
				return &plan, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("plan").Inc()
	}

	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cachePlan(ctx, plan)
	return plan, nil
}

// List returns one page of plans and the total count.
func (s *PlanService) List(ctx context.Context, limit, offset int) ([]domain.PrefetchPlan, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.plans.List(ctx, limit, offset)
}

// Delete removes a plan and its progress reports.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	if err := s.plans.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, PlanCacheKey(id))
	}
	return nil
}

func (s *PlanService) dispatch(ctx context.Context, plan *domain.PrefetchPlan) {
	if s.dispatcher == nil {
		slog.Warn("no dispatcher configured, plan not dispatched", "plan_id", plan.ID)
		return
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlanDispatch, trace.WithAttributes(
		attribute.String(telemetry.AttrPlanID, plan.ID),
	))
	defer span.End()

	if err := s.dispatcher.Dispatch(ctx, plan); err != nil {
		metrics.DispatchFailures.Inc()
		span.RecordError(err)
		slog.Error("dispatch plan", "plan_id", plan.ID, "regions", len(plan.Regions), "error", err)
	}
}

func (s *PlanService) cachePlan(ctx context.Context, plan *domain.PrefetchPlan) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(plan); err == nil {
		_ = s.cache.Set(ctx, PlanCacheKey(plan.ID), data, planCacheTTL)
	}
}

// PlanCacheKey is the cache key of a stored plan.
func PlanCacheKey(id string) string { return "plans:id:" + id }

// IsClientError reports whether err was caused by the caller's input rather
// than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrEmptyTrack) ||
		errors.Is(err, domain.ErrPolarLatitude)
}
