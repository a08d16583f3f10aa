package metrics

import (
	"vehicletracker.org/internal/geo"
	"vehicletracker.org/internal/models"
)

// VehicleQuality summarises the data quality of one snapshot.
type VehicleQuality struct {
	Total            int
	InvalidPosition  int
	OutOfServiceArea int
	WithoutDetails   int
}

// ObserveVehicles counts vehicles with suspicious data in a fresh snapshot and
// exports the counts as gauges. It never changes the snapshot.
//
// area may be nil when no static stops are loaded; the out-of-area gauge is
// then left at zero.
func ObserveVehicles(vehicles []models.VehicleSnapshot, area *geo.BoundingBox) VehicleQuality {
	q := VehicleQuality{Total: len(vehicles)}
	for _, v := range vehicles {
		if !geo.IsValidLatLon(v.Latitude, v.Longitude) {
			q.InvalidPosition++
		} else if area != nil && !area.Contains(v.Latitude, v.Longitude) {
			q.OutOfServiceArea++
		}
		if v.LicensePlate == "" || v.LicensePlate == models.NotAvailable {
			q.WithoutDetails++
		}
	}

	CachedVehicles.Set(float64(q.Total))
	VehiclesInvalidPosition.Set(float64(q.InvalidPosition))
	VehiclesOutOfServiceArea.Set(float64(q.OutOfServiceArea))
	VehiclesWithoutDetails.Set(float64(q.WithoutDetails))
	return q
}
