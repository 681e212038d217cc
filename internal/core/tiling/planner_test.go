package tiling_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/tiling"
	"github.com/samirrijal/routetiles/internal/pkg/geospatial"
)

func TestPlanner_Plan(t *testing.T) {
	p := tiling.NewPlanner(mustBoxes(t))
	track := domain.Track{Name: "coast", Points: pts(0, 0, 0, 0.1, 0, 0.2, 0, 0.21)}

	plan, err := p.Plan(track, domain.DefaultPlanSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "coast" || plan.PointCount != 4 {
		t.Errorf("unexpected plan header: %+v", plan)
	}
	if len(plan.Regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(plan.Regions))
	}

	wantWaypoints := []int{1, 2, 3}
	var total int64
	for i, r := range plan.Regions {
		if r.Index != i {
			t.Errorf("region %d: expected index %d, got %d", i, i, r.Index)
		}
		if r.Waypoint.Index != wantWaypoints[i] {
			t.Errorf("region %d: expected waypoint %d, got %d", i, wantWaypoints[i], r.Waypoint.Index)
		}
		if !r.Bounds.Contains(r.Waypoint.Point) {
			t.Errorf("region %d: bounds do not contain waypoint", i)
		}
		if r.TileCount <= 0 {
			t.Errorf("region %d: expected tiles, got %d", i, r.TileCount)
		}
		if r.Degraded {
			t.Errorf("region %d: unexpected degraded flag", i)
		}
		total += r.TileCount
	}
	if plan.TileCount != total {
		t.Errorf("expected plan tile count %d, got %d", total, plan.TileCount)
	}
	if plan.Skipped != 0 {
		t.Errorf("expected nothing skipped, got %d", plan.Skipped)
	}
	if plan.LengthMeters <= 0 {
		t.Errorf("expected positive length, got %f", plan.LengthMeters)
	}
}

func TestPlanner_TileCountMatchesBounds(t *testing.T) {
	settings := domain.DefaultPlanSettings()
	settings.MinZoom, settings.MaxZoom = 10, 12

	plan, err := tiling.NewPlanner(mustBoxes(t)).Plan(domain.Track{Points: pts(43.26, -2.93)}, settings)
	if err != nil {
		t.Fatal(err)
	}
	r := plan.Regions[0]
	want := geospatial.TileCount(r.Bounds.SouthWest.Lat, r.Bounds.SouthWest.Lon,
		r.Bounds.NorthEast.Lat, r.Bounds.NorthEast.Lon, 10, 12)
	if r.TileCount != want {
		t.Errorf("expected %d tiles, got %d", want, r.TileCount)
	}
	if r.MinZoom != 10 || r.MaxZoom != 12 {
		t.Errorf("expected zoom 10-12, got %d-%d", r.MinZoom, r.MaxZoom)
	}
}

func TestPlanner_SkipsPolarWaypoints(t *testing.T) {
	track := domain.Track{Points: pts(0, 0, 0, 0.1, 90, 0)}

	plan, err := tiling.NewPlanner(mustBoxes(t)).Plan(track, domain.DefaultPlanSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Regions) != 1 || plan.Skipped != 1 {
		t.Fatalf("expected 1 region and 1 skipped, got %d and %d", len(plan.Regions), plan.Skipped)
	}
	if plan.Regions[0].Waypoint.Index != 1 {
		t.Errorf("expected remaining region at waypoint 1, got %d", plan.Regions[0].Waypoint.Index)
	}
}

func TestPlanner_FlagsDegradedRegions(t *testing.T) {
	plan, err := tiling.NewPlanner(mustBoxes(t)).Plan(domain.Track{Points: pts(89.9, 0)}, domain.DefaultPlanSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Regions[0].Degraded {
		t.Error("expected region near the pole to be degraded")
	}
}

func TestPlanner_AntipodalTrackStaysFinite(t *testing.T) {
	track := domain.Track{Points: pts(-86.77999999999997, -179, 86.77999999999997, 1)}

	plan, err := tiling.NewPlanner(mustBoxes(t)).Plan(track, domain.DefaultPlanSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(plan.LengthMeters) || math.IsInf(plan.LengthMeters, 0) {
		t.Fatalf("expected a finite length, got %f", plan.LengthMeters)
	}
	if _, err := json.Marshal(plan); err != nil {
		t.Errorf("plan must encode as JSON: %v", err)
	}
}

func TestPlanner_Errors(t *testing.T) {
	p := tiling.NewPlanner(mustBoxes(t))
	settings := domain.DefaultPlanSettings()

	if _, err := p.Plan(domain.Track{Points: pts(90, 0)}, settings); !errors.Is(err, domain.ErrPolarLatitude) {
		t.Errorf("expected ErrPolarLatitude, got %v", err)
	}
	if _, err := p.Plan(domain.Track{}, settings); !errors.Is(err, domain.ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}
	if _, err := p.Plan(domain.Track{Points: pts(0, 0, 100, 0)}, settings); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad point, got %v", err)
	}

	bad := settings
	bad.MinDistanceMeters = 0
	if _, err := p.Plan(domain.Track{Points: pts(0, 0)}, bad); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad settings, got %v", err)
	}
}
