package tiling

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/pkg/geospatial"
)

// Planner turns a track into prefetch regions.
type Planner struct {
	boxes *BoxCalculator
}

// NewPlanner creates a Planner using the given box calculator.
func NewPlanner(boxes *BoxCalculator) *Planner {
	return &Planner{boxes: boxes}
}

// Plan selects waypoints along track and computes one region per waypoint.
// The returned plan has no ID or creation time yet.
//
// Waypoints whose box cannot be represented near a pole are skipped and
// counted in Skipped; Plan fails with domain.ErrPolarLatitude only when every
// waypoint was skipped.
func (p *Planner) Plan(track domain.Track, settings domain.PlanSettings) (*domain.PrefetchPlan, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if track.Len() == 0 {
		return nil, domain.ErrEmptyTrack
	}
	for i, pt := range track.Points {
		if !pt.Valid() {
			return nil, fmt.Errorf("%w: point %d (%v,%v)", domain.ErrInvalidArgument, i, pt.Lat, pt.Lon)
		}
	}

	simplifier, err := NewSimplifier(settings.MinDistanceMeters)
	if err != nil {
		return nil, err
	}
	waypoints, err := simplifier.Select(track.Points)
	if err != nil {
		return nil, err
	}

	plan := &domain.PrefetchPlan{
		Name:         track.Name,
		Settings:     settings,
		PointCount:   track.Len(),
		LengthMeters: track.Length(),
		Regions:      make([]domain.PrefetchRegion, 0, len(waypoints)),
	}

	for _, wp := range waypoints {
		box, err := p.boxes.Compute(wp.Point, settings.OffsetMeters)
		if errors.Is(err, domain.ErrPolarLatitude) {
			slog.Warn("skipping waypoint near pole", "track", track.Name, "index", wp.Index, "lat", wp.Point.Lat)
			plan.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("box for waypoint %d: %w", wp.Index, err)
		}

		tiles := geospatial.TileCount(box.SouthWest.Lat, box.SouthWest.Lon, box.NorthEast.Lat, box.NorthEast.Lon,
			settings.MinZoom, settings.MaxZoom)

		plan.Regions = append(plan.Regions, domain.PrefetchRegion{
			Index:     len(plan.Regions),
			Waypoint:  wp,
			Bounds:    box,
			MinZoom:   settings.MinZoom,
			MaxZoom:   settings.MaxZoom,
			TileCount: tiles,
			Degraded:  Degraded(wp.Point.Lat),
		})
		plan.TileCount += tiles
	}

	if len(plan.Regions) == 0 {
		return nil, fmt.Errorf("track %q: %w", track.Name, domain.ErrPolarLatitude)
	}
	return plan, nil
}
