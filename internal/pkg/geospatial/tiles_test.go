package geospatial

import "testing"

func TestTiles_ZoomZero(t *testing.T) {
	r := Tiles(-10, -10, 10, 10, 0)
	if r.Count() != 1 {
		t.Fatalf("expected a single tile at zoom 0, got %d (%+v)", r.Count(), r)
	}
}

func TestTiles_StraddlingOrigin(t *testing.T) {
	r := Tiles(-0.009, -0.009, 0.009, 0.009, 1)
	want := TileRange{Zoom: 1, MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	if r != want {
		t.Fatalf("expected %+v, got %+v", want, r)
	}
	if r.Count() != 4 {
		t.Errorf("expected 4 tiles, got %d", r.Count())
	}
}

func TestTiles_Column(t *testing.T) {
	testCases := []struct {
		lon  float64
		zoom int
		want int
	}{
		{-180, 3, 0},
		{0, 3, 4},
		{179.999, 3, 7},
		{180, 3, 7},   // clamped
		{181.5, 3, 7}, // unnormalized box edge
		{-181.5, 3, 0},
		{13.4050, 10, 550},
	}
	for _, tc := range testCases {
		r := Tiles(0, tc.lon, 0, tc.lon, tc.zoom)
		if r.MinX != tc.want || r.MaxX != tc.want {
			t.Errorf("lon %f at zoom %d: expected column %d, got %+v", tc.lon, tc.zoom, tc.want, r)
		}
	}
}

func TestTiles_Row(t *testing.T) {
	testCases := []struct {
		lat  float64
		zoom int
		want int
	}{
		{0.0001, 1, 0},
		{-0.0001, 1, 1},
		{89.9, 4, 0},   // clamped to the Mercator limit
		{-89.9, 4, 15}, // clamped to the Mercator limit
		{52.5200, 10, 335},
	}
	for _, tc := range testCases {
		r := Tiles(tc.lat, 0, tc.lat, 0, tc.zoom)
		if r.MinY != tc.want || r.MaxY != tc.want {
			t.Errorf("lat %f at zoom %d: expected row %d, got %+v", tc.lat, tc.zoom, tc.want, r)
		}
	}
}

func TestTileCount_MonotonicInZoom(t *testing.T) {
	// About 1 km around Bilbao.
	minLat, minLon, maxLat, maxLon := 43.251, -2.942, 43.269, -2.918
	prev := int64(0)
	for maxZoom := 8; maxZoom <= 14; maxZoom++ {
		got := TileCount(minLat, minLon, maxLat, maxLon, 8, maxZoom)
		if got <= prev {
			t.Fatalf("expected tile count to grow with max zoom, got %d after %d", got, prev)
		}
		prev = got
	}
}

func TestTileCount_EmptyRange(t *testing.T) {
	if got := TileCount(0, 0, 1, 1, 10, 9); got != 0 {
		t.Errorf("expected 0 for an inverted zoom range, got %d", got)
	}
}
