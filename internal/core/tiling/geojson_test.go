package tiling_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/tiling"
)

func TestRegionCollection(t *testing.T) {
	bounds := domain.BoundingBox{
		SouthWest: domain.GeoPoint{Lat: 43.25, Lon: -2.96},
		NorthEast: domain.GeoPoint{Lat: 43.27, Lon: -2.94},
	}
	plans := []*domain.PrefetchPlan{
		{ID: "a", Name: "coast", Regions: []domain.PrefetchRegion{
			{Index: 0, Waypoint: domain.Waypoint{Index: 2}, Bounds: bounds, MinZoom: 8, MaxZoom: 14, TileCount: 40},
			{Index: 1, Waypoint: domain.Waypoint{Index: 5}, Bounds: bounds, MinZoom: 8, MaxZoom: 14, TileCount: 40, Degraded: true},
		}},
		{ID: "b", Regions: []domain.PrefetchRegion{{Index: 0, Bounds: bounds}}},
	}

	fc := tiling.RegionCollection(plans...)
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(fc.Features))
	}

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok || len(poly) != 1 {
		t.Fatalf("expected a single-ring polygon, got %#v", fc.Features[0].Geometry)
	}
	ring := poly[0]
	if len(ring) != 5 || !ring.Closed() {
		t.Fatalf("expected a closed ring of 5 points, got %v", ring)
	}
	if ring[0] != (orb.Point{-2.96, 43.25}) {
		t.Errorf("ring must start at the south-west corner, got %v", ring[0])
	}
	if ring.Orientation() != orb.CCW {
		t.Error("exterior ring must be counter-clockwise")
	}

	props := fc.Features[1].Properties
	if props["plan_id"] != "a" || props["name"] != "coast" || props["waypoint_index"] != 5 || props["degraded"] != true {
		t.Errorf("unexpected properties: %v", props)
	}
	if _, ok := fc.Features[2].Properties["name"]; ok {
		t.Error("unnamed plans must not carry a name property")
	}
}

func TestRegionCollection_EncodesAsFeatureCollection(t *testing.T) {
	plan := &domain.PrefetchPlan{ID: "a", Regions: []domain.PrefetchRegion{{Bounds: domain.BoundingBox{
		SouthWest: domain.GeoPoint{Lat: 0, Lon: 0},
		NorthEast: domain.GeoPoint{Lat: 1, Lon: 1},
	}}}}

	data, err := tiling.RegionCollection(plan).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("output is not a FeatureCollection: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Geometry.GeoJSONType() != "Polygon" {
		t.Errorf("unexpected collection: %s", data)
	}
}
