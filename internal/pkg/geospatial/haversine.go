package geospatial

import "math"

const (
	// MeanEarthRadius is the IUGG mean Earth radius in meters, used for distances.
	MeanEarthRadius = 6371008.8

	// EquatorialEarthRadius is the WGS-84 semi-major axis in meters, used for box offsets.
	EquatorialEarthRadius = 6378137.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding pushes a just past 1 for near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return MeanEarthRadius * c
}

// Offsets converts a metric offset into latitude and longitude deltas in degrees
// at the given latitude, using an equirectangular approximation on a sphere of
// radius earthRadius. The longitude delta grows without bound towards the poles;
// callers must check it with math.IsInf / math.IsNaN.
func Offsets(lat, offsetMeters, earthRadius float64) (dLat, dLon float64) {
	dLat = (offsetMeters / earthRadius) * 180 / math.Pi
	dLon = (offsetMeters / (earthRadius * math.Cos(math.Pi*lat/180))) * 180 / math.Pi
	return dLat, dLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
