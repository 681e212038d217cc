package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxMercatorLatitude is the latitude at which Web Mercator tiles stop.
const MaxMercatorLatitude = 85.05112878

// TileRange is an inclusive range of slippy-map tiles at one zoom level.
type TileRange struct {
	Zoom int `json:"zoom"`
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int64 {
	return int64(r.MaxX-r.MinX+1) * int64(r.MaxY-r.MinY+1)
}

// Tiles returns the tile range covering the box at the given zoom.
// Tile Y grows southwards, so the north-west corner gives the minimum tile.
func Tiles(minLat, minLon, maxLat, maxLon float64, zoom int) TileRange {
	z := maptile.Zoom(zoom)
	nw := tileAt(maxLat, minLon, z)
	se := tileAt(minLat, maxLon, z)
	return TileRange{
		Zoom: zoom,
		MinX: int(nw.X),
		MinY: int(nw.Y),
		MaxX: int(se.X),
		MaxY: int(se.Y),
	}
}

// TileCount sums the tiles covering the box over the inclusive zoom range.
func TileCount(minLat, minLon, maxLat, maxLon float64, minZoom, maxZoom int) int64 {
	var total int64
	for z := minZoom; z <= maxZoom; z++ {
		total += Tiles(minLat, minLon, maxLat, maxLon, z).Count()
	}
	return total
}

// tileAt is maptile.At for points that may lie outside the tiled world.
// maptile leaves longitudes at or past ±180 and latitudes at the southern
// Mercator limit one tile off the grid, so both are pulled back in.
func tileAt(lat, lon float64, z maptile.Zoom) maptile.Tile {
	lat = math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, lat))
	lon = math.Max(-180, math.Min(180, lon))

	t := maptile.At(orb.Point{lon, lat}, z)
	last := uint32(1)<<uint32(z) - 1
	t.X = min(t.X, last)
	t.Y = min(t.Y, last)
	return t
}
