package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultMinDistanceMeters = 5000.0
	DefaultOffsetMeters      = 1000.0
	DefaultMinZoom           = 8
	DefaultMaxZoom           = 14
	MaxZoomLevel             = 22
)

// PlanSettings controls how a track is turned into prefetch regions.
type PlanSettings struct {
	MinDistanceMeters float64 `json:"min_distance_meters"`
	OffsetMeters      float64 `json:"offset_meters"`
	MinZoom           int     `json:"min_zoom"`
	MaxZoom           int     `json:"max_zoom"`
}

// DefaultPlanSettings returns the settings used when a request leaves them out.
func DefaultPlanSettings() PlanSettings {
	return PlanSettings{
		MinDistanceMeters: DefaultMinDistanceMeters,
		OffsetMeters:      DefaultOffsetMeters,
		MinZoom:           DefaultMinZoom,
		MaxZoom:           DefaultMaxZoom,
	}
}

// Validate checks every field and reports all violations at once.
func (s PlanSettings) Validate() error {
	var errs []string

	if !(s.MinDistanceMeters > 0) || math.IsInf(s.MinDistanceMeters, 0) {
		errs = append(errs, fmt.Sprintf("min distance must be a positive number of meters, got %v", s.MinDistanceMeters))
	}
	if !(s.OffsetMeters > 0) || math.IsInf(s.OffsetMeters, 0) {
		errs = append(errs, fmt.Sprintf("offset must be a positive number of meters, got %v", s.OffsetMeters))
	}
	if s.MinZoom < 0 || s.MinZoom > MaxZoomLevel {
		errs = append(errs, fmt.Sprintf("min zoom must be 0-%d, got %d", MaxZoomLevel, s.MinZoom))
	}
	if s.MaxZoom < 0 || s.MaxZoom > MaxZoomLevel {
		errs = append(errs, fmt.Sprintf("max zoom must be 0-%d, got %d", MaxZoomLevel, s.MaxZoom))
	}
	if s.MinZoom > s.MaxZoom {
		errs = append(errs, fmt.Sprintf("min zoom %d is above max zoom %d", s.MinZoom, s.MaxZoom))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}

// PrefetchRegion is one box of tiles to download around a waypoint.
type PrefetchRegion struct {
	Index     int         `json:"index"`
	Waypoint  Waypoint    `json:"waypoint"`
	Bounds    BoundingBox `json:"bounds"`
	MinZoom   int         `json:"min_zoom"`
	MaxZoom   int         `json:"max_zoom"`
	TileCount int64       `json:"tile_count"`
	Degraded  bool        `json:"degraded,omitempty"` // centre outside ±85° latitude
}

// PrefetchPlan is the set of regions planned for one track.
type PrefetchPlan struct {
	ID           string           `json:"id"`
	Name         string           `json:"name,omitempty"`
	Settings     PlanSettings     `json:"settings"`
	PointCount   int              `json:"point_count"`
	LengthMeters float64          `json:"length_meters"`
	Regions      []PrefetchRegion `json:"regions"`
	TileCount    int64            `json:"tile_count"`
	Skipped      int              `json:"skipped,omitempty"` // waypoints too close to a pole
	DispatchedAt *time.Time       `json:"dispatched_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// PrefetchRequest is the message handed to the tile downloader for one region.
type PrefetchRequest struct {
	PlanID      string      `json:"plan_id"`
	RegionIndex int         `json:"region_index"`
	Bounds      BoundingBox `json:"bounds"`
	MinZoom     int         `json:"min_zoom"`
	MaxZoom     int         `json:"max_zoom"`
	TileCount   int64       `json:"tile_count"`
}

// RequestFor builds the prefetch request for region r of plan p.
func (p *PrefetchPlan) RequestFor(r PrefetchRegion) PrefetchRequest {
	return PrefetchRequest{
		PlanID:      p.ID,
		RegionIndex: r.Index,
		Bounds:      r.Bounds,
		MinZoom:     r.MinZoom,
		MaxZoom:     r.MaxZoom,
		TileCount:   r.TileCount,
	}
}

// Progress is a download progress report for one region.
type Progress struct {
	PlanID      string    `json:"plan_id"`
	RegionIndex int       `json:"region_index"`
	Completed   int64     `json:"completed"`
	Expected    int64     `json:"expected"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the counters of a report.
func (p Progress) Validate() error {
	switch {
	case p.PlanID == "":
		return fmt.Errorf("%w: plan id is required", ErrInvalidArgument)
	case p.RegionIndex < 0:
		return fmt.Errorf("%w: region index must not be negative", ErrInvalidArgument)
	case p.Completed < 0 || p.Expected < 0:
		return fmt.Errorf("%w: progress counters must not be negative", ErrInvalidArgument)
	case p.Completed > p.Expected:
		return fmt.Errorf("%w: completed %d exceeds expected %d", ErrInvalidArgument, p.Completed, p.Expected)
	}
	return nil
}

// PlanProgress aggregates the latest report of every region of a plan.
type PlanProgress struct {
	PlanID    string  `json:"plan_id"`
	Regions   int     `json:"regions"`
	Reported  int     `json:"reported"`
	Completed int64   `json:"completed"`
	Expected  int64   `json:"expected"`
	Fraction  float64 `json:"fraction"`
	Done      bool    `json:"done"`
}

// Summarize folds region reports into a PlanProgress. regions is the number of
// regions in the plan.
func Summarize(planID string, regions int, reports []Progress) PlanProgress {
	out := PlanProgress{PlanID: planID, Regions: regions}
	for _, r := range reports {
		out.Reported++
		out.Completed += r.Completed
		out.Expected += r.Expected
	}
	if out.Expected > 0 {
		out.Fraction = math.Min(1, float64(out.Completed)/float64(out.Expected))
	}
	out.Done = regions > 0 && out.Reported >= regions && out.Completed == out.Expected
	return out
}

// TrackResult carries one parsed track or the error that stopped parsing.
type TrackResult struct {
	Track Track
	Err   error
}
