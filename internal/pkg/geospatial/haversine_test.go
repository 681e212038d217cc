package geospatial

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	testCases := []struct {
		name                         string
		lat1, lon1, lat2, lon2, want float64
		tolerance                    float64 // relative
	}{
		{"same point", 52.5200, 13.4050, 52.5200, 13.4050, 0, 0},
		{"hundredth of a degree on the equator", 0, 0, 0, 0.01, 1112, 0.01},
		{"tenth of a degree on the equator", 0, 0, 0, 0.1, 11120, 0.01},
		// Berlin TV Tower to Brandenburg Gate
		{"berlin", 52.5208, 13.4094, 52.5163, 13.3777, 2200, 0.05},
		// New York to Los Angeles
		{"new york to los angeles", 40.7128, -74.0060, 34.0522, -118.2437, 3940000, 0.01},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Haversine(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if tc.want == 0 {
				if got != 0 {
					t.Fatalf("expected 0 for same point, got %f", got)
				}
				return
			}
			if math.Abs(got-tc.want) > tc.want*tc.tolerance {
				t.Errorf("expected distance around %f m, got %f m", tc.want, got)
			}
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(43.2630, -2.9350, 43.3183, -1.9812)
	b := Haversine(43.3183, -1.9812, 43.2630, -2.9350)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("expected symmetric distance, got %f and %f", a, b)
	}
}

func TestOffsets_Equator(t *testing.T) {
	dLat, dLon := Offsets(0, 1000, EquatorialEarthRadius)
	if math.Abs(dLat-0.008983) > 1e-6 {
		t.Errorf("expected dLat ~0.008983, got %f", dLat)
	}
	if math.Abs(dLat-dLon) > 1e-12 {
		t.Errorf("expected dLat == dLon at the equator, got %f and %f", dLat, dLon)
	}
}

func TestOffsets_WidensWithLatitude(t *testing.T) {
	_, lon0 := Offsets(0, 1000, EquatorialEarthRadius)
	_, lon60 := Offsets(60, 1000, EquatorialEarthRadius)
	if math.Abs(lon60-2*lon0) > 1e-9 {
		t.Errorf("expected longitude delta to double at 60 degrees, got %f vs %f", lon60, lon0)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	testCases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"equator", 0, 0, 0, 180},
		{"poles", 90, 0, -90, 0},
		{"high latitude", -86.77999999999997, -179, 86.77999999999997, 1},
	}
	want := math.Pi * MeanEarthRadius
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Haversine(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.IsNaN(got) || math.Abs(got-want) > 1 {
				t.Errorf("expected half the circumference %f, got %f", want, got)
			}
		})
	}
}
