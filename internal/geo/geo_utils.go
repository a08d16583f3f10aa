package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"vehicletracker.org/internal/models"
)

// earthRadiusInMeters is the Earth's volumetric mean radius.
const earthRadiusInMeters = 6371000

// DefaultServiceAreaMargin is how far outside the outermost stops a vehicle may
// be and still count as inside the service area.
const DefaultServiceAreaMargin = 1000.0

// BoundingBox is the service area derived from the static stops.
type BoundingBox struct {
	rect s2.Rect
}

// Contains checks whether the given latitude and longitude are within the bounding box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lon))
}

// Bounds returns the south-west and north-east corners in degrees.
func (b BoundingBox) Bounds() (minLat, minLon, maxLat, maxLon float64) {
	lo, hi := b.rect.Lo(), b.rect.Hi()
	return lo.Lat.Degrees(), lo.Lng.Degrees(), hi.Lat.Degrees(), hi.Lng.Degrees()
}

// ComputeBoundingBox computes the box around every stop with valid
// coordinates, grown by marginMeters on each side.
func ComputeBoundingBox(stops []models.Stop, marginMeters float64) (BoundingBox, error) {
	rect := s2.EmptyRect()
	for _, stop := range stops {
		if !IsValidLatLon(stop.Latitude, stop.Longitude) {
			continue
		}
		rect = rect.AddPoint(s2.LatLngFromDegrees(stop.Latitude, stop.Longitude))
	}
	if rect.IsEmpty() {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in %d stops", len(stops))
	}

	if marginMeters > 0 {
		latMargin := s1.Angle(marginMeters / earthRadiusInMeters)
		// a degree of longitude shrinks with the cosine of the latitude
		cos := math.Cos(rect.Center().Lat.Radians())
		lngMargin := latMargin
		if cos > 1e-6 {
			lngMargin = s1.Angle(float64(latMargin) / cos)
		}
		rect = s2.Rect{
			Lat: rect.Lat.Expanded(float64(latMargin)).Intersection(s2.FullRect().Lat),
			Lng: rect.Lng.Expanded(float64(lngMargin)),
		}
	}

	return BoundingBox{rect: rect}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Note: (0,0) is treated as invalid, even though it is a real location in the
// Gulf of Guinea. Feeds use it as a placeholder for "no fix".
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}
