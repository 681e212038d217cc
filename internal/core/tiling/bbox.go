package tiling

import (
	"fmt"
	"math"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/pkg/geospatial"
)

// MaxReliableLatitude bounds the latitudes where the equirectangular box is a
// reasonable square. Beyond it boxes are still produced but flagged degraded.
const MaxReliableLatitude = 85.0

// Degraded reports whether a box centred at lat loses accuracy.
func Degraded(lat float64) bool {
	return math.Abs(lat) > MaxReliableLatitude
}

// BoxCalculator computes a lat/lon box approximating a square of a given
// half-width around a point, using an equirectangular approximation.
type BoxCalculator struct {
	earthRadius float64
}

// NewBoxCalculator creates a BoxCalculator for a sphere of the given radius.
// Pass geospatial.EquatorialEarthRadius for WGS 84.
func NewBoxCalculator(earthRadiusMeters float64) (*BoxCalculator, error) {
	if !(earthRadiusMeters > 0) || math.IsInf(earthRadiusMeters, 0) {
		return nil, fmt.Errorf("%w: earth radius must be positive, got %v", domain.ErrInvalidArgument, earthRadiusMeters)
	}
	return &BoxCalculator{earthRadius: earthRadiusMeters}, nil
}

// Compute returns the box of half-width offsetMeters centred on center.
//
// The longitude half-width is offset / (R·cos(lat)), which diverges towards the
// poles. When it is no longer finite, or the box would span half the globe,
// Compute returns domain.ErrPolarLatitude instead of a box.
func (c *BoxCalculator) Compute(center domain.GeoPoint, offsetMeters float64) (domain.BoundingBox, error) {
	if !center.Valid() {
		return domain.BoundingBox{}, fmt.Errorf("%w: center %v,%v", domain.ErrInvalidArgument, center.Lat, center.Lon)
	}
	if !(offsetMeters > 0) || math.IsInf(offsetMeters, 0) {
		return domain.BoundingBox{}, fmt.Errorf("%w: offset must be positive, got %v", domain.ErrInvalidArgument, offsetMeters)
	}

	dLat, dLon := geospatial.Offsets(center.Lat, offsetMeters, c.earthRadius)
	if math.IsNaN(dLon) || math.IsInf(dLon, 0) || dLon >= 180 {
		return domain.BoundingBox{}, fmt.Errorf("%w: lat %v", domain.ErrPolarLatitude, center.Lat)
	}

	return domain.BoundingBox{
		SouthWest: domain.GeoPoint{Lat: center.Lat - dLat, Lon: center.Lon - dLon},
		NorthEast: domain.GeoPoint{Lat: center.Lat + dLat, Lon: center.Lon + dLon},
	}, nil
}
