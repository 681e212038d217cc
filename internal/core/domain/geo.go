package domain

import (
	"math"

	"github.com/samirrijal/routetiles/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceTo returns the great-circle distance to o in meters.
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	return geospatial.Haversine(p.Lat, p.Lon, o.Lat, o.Lon)
}

// Valid reports whether the point is finite and inside the WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Track is an ordered sequence of recorded fixes in route order.
// Consecutive identical points are allowed.
type Track struct {
	Name   string     `json:"name,omitempty"`
	Points []GeoPoint `json:"points"`
}

// Len returns the number of points.
func (t Track) Len() int { return len(t.Points) }

// Length returns the summed segment length in meters.
func (t Track) Length() float64 {
	var total float64
	for i := 1; i < len(t.Points); i++ {
		total += t.Points[i-1].DistanceTo(t.Points[i])
	}
	return total
}

// Waypoint is a point selected from a track, identified by its source index.
type Waypoint struct {
	Index int      `json:"index"`
	Point GeoPoint `json:"point"`
}

// BoundingBox is a lat/lon rectangle given by its south-west and north-east
// corners. Longitude wraparound at ±180 is not normalized.
type BoundingBox struct {
	SouthWest GeoPoint `json:"south_west"`
	NorthEast GeoPoint `json:"north_east"`
}

// Corners returns the four corners as NW, NE, SE, SW.
func (b BoundingBox) Corners() [4]GeoPoint {
	return [4]GeoPoint{
		{Lat: b.NorthEast.Lat, Lon: b.SouthWest.Lon},
		b.NorthEast,
		{Lat: b.SouthWest.Lat, Lon: b.NorthEast.Lon},
		b.SouthWest,
	}
}

// Outline returns the corners as a closed ring, starting and ending at NW.
func (b BoundingBox) Outline() []GeoPoint {
	c := b.Corners()
	return []GeoPoint{c[0], c[1], c[2], c[3], c[0]}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lon: (b.SouthWest.Lon + b.NorthEast.Lon) / 2,
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lon >= b.SouthWest.Lon && p.Lon <= b.NorthEast.Lon
}

// Overlaps reports whether the two boxes share any area.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.SouthWest.Lat <= o.NorthEast.Lat && b.NorthEast.Lat >= o.SouthWest.Lat &&
		b.SouthWest.Lon <= o.NorthEast.Lon && b.NorthEast.Lon >= o.SouthWest.Lon
}

// Finite reports whether every coordinate of the box is a finite number.
func (b BoundingBox) Finite() bool {
	for _, v := range []float64{b.SouthWest.Lat, b.SouthWest.Lon, b.NorthEast.Lat, b.NorthEast.Lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
