// Package tiling turns a recorded track into tile-prefetch regions: it picks
// waypoints spaced a minimum distance apart along the track and computes a
// bounding box around each of them.
package tiling

import (
	"fmt"
	"math"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// Simplifier selects waypoints from a track so that consecutive waypoints are
// at least a minimum great-circle distance apart. The last point of the track
// is always selected, even when it is closer than the minimum.
type Simplifier struct {
	minDistance float64
}

// NewSimplifier creates a Simplifier. minDistanceMeters must be positive.
func NewSimplifier(minDistanceMeters float64) (*Simplifier, error) {
	if !(minDistanceMeters > 0) || math.IsInf(minDistanceMeters, 0) {
		return nil, fmt.Errorf("%w: min distance must be positive, got %v", domain.ErrInvalidArgument, minDistanceMeters)
	}
	return &Simplifier{minDistance: minDistanceMeters}, nil
}

// Waypoints returns an iterator over the selected indices of points.
func (s *Simplifier) Waypoints(points []domain.GeoPoint) (*WaypointIterator, error) {
	if len(points) == 0 {
		return nil, domain.ErrEmptyTrack
	}
	return &WaypointIterator{points: points, min: s.minDistance}, nil
}

// Indices materializes the selected indices.
func (s *Simplifier) Indices(points []domain.GeoPoint) ([]int, error) {
	it, err := s.Waypoints(points)
	if err != nil {
		return nil, err
	}
	var out []int
	for idx, ok := it.Next(); ok; idx, ok = it.Next() {
		out = append(out, idx)
	}
	return out, nil
}

// Select materializes the selected waypoints.
func (s *Simplifier) Select(points []domain.GeoPoint) ([]domain.Waypoint, error) {
	idx, err := s.Indices(points)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Waypoint, len(idx))
	for i, j := range idx {
		out[i] = domain.Waypoint{Index: j, Point: points[j]}
	}
	return out, nil
}

// WaypointIterator yields strictly increasing indices and always ends with
// the last index of the track. It cannot be restarted.
type WaypointIterator struct {
	points []domain.GeoPoint
	min    float64
	base   int
	done   bool
}

// Next returns the next selected index, or false once the track is exhausted.
func (it *WaypointIterator) Next() (int, bool) {
	if it.done {
		return 0, false
	}

	last := len(it.points) - 1
	for next := it.base + 1; next <= last; next++ {
		if it.points[it.base].DistanceTo(it.points[next]) >= it.min {
			it.base = next
			it.done = next == last
			return next, true
		}
	}

	// Nothing far enough before the end: the last point closes the route.
	it.done = true
	return last, true
}
