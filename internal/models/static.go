package models

// Stop is a row of stops.txt. Only the columns used for display and
// geographic checks are mapped.
type Stop struct {
	ID        string  `csv:"stop_id"`
	Name      string  `csv:"stop_name"`
	Latitude  float64 `csv:"stop_lat"`
	Longitude float64 `csv:"stop_lon"`
}

// StopTime is a row of stop_times.txt.
//
// ArrivalTime and DepartureTime are kept in their GTFS form (HH:MM:SS, where
// the hour may exceed 23 for service past midnight).
type StopTime struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}
