package models

// NotAvailable is the sentinel used for optional vehicle fields
// the upstream feeds did not provide.
const NotAvailable = "N/A"

// VehicleSnapshot is one vehicle as seen by a single successful fetch.
// It is treated as an immutable value once built by the fetcher.
//
// Vehicles without an id or without a position never become a VehicleSnapshot,
// so Latitude and Longitude are always meaningful.
type VehicleSnapshot struct {
	VehicleID    string  `json:"vehicle_id"`
	TripID       string  `json:"trip_id"`
	RouteID      string  `json:"route_id"`
	Label        string  `json:"label"`
	LicensePlate string  `json:"license_plate"`
	VehicleModel string  `json:"vehicle_model"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// VehicleDetails holds the attributes taken from the plain-text side channel
// for a single vehicle id.
type VehicleDetails struct {
	LicensePlate string
	VehicleModel string
}

// CacheState is the point-in-time view of the refresh cache.
//
// Vehicles and FetchedAt always come from the same successful fetch.
// OK and LastError describe the most recent attempt, successful or not.
type CacheState struct {
	Vehicles  []VehicleSnapshot `json:"vehicles"`
	FetchedAt int64             `json:"fetched_at"`
	OK        bool              `json:"ok"`
	LastError string            `json:"last_error,omitempty"`
}
