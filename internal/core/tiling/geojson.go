package tiling

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// RegionCollection returns every region of plans as a GeoJSON Polygon
// feature. Rings start at the south-west corner and run counter-clockwise.
func RegionCollection(plans ...*domain.PrefetchPlan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range plans {
		for _, r := range p.Regions {
			f := geojson.NewFeature(orb.Polygon{regionRing(r.Bounds)})
			f.Properties["plan_id"] = p.ID
			if p.Name != "" {
				f.Properties["name"] = p.Name
			}
			f.Properties["index"] = r.Index
			f.Properties["waypoint_index"] = r.Waypoint.Index
			f.Properties["min_zoom"] = r.MinZoom
			f.Properties["max_zoom"] = r.MaxZoom
			f.Properties["tile_count"] = r.TileCount
			if r.Degraded {
				f.Properties["degraded"] = true
			}
			fc.Append(f)
		}
	}
	return fc
}

func regionRing(b domain.BoundingBox) orb.Ring {
	c := b.Corners() // NW, NE, SE, SW
	ring := make(orb.Ring, 0, 5)
	for _, i := range []int{3, 2, 1, 0, 3} {
		ring = append(ring, orb.Point{c[i].Lon, c[i].Lat})
	}
	return ring
}
