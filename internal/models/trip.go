package models

// DelayType classifies a signed delay.
type DelayType string

const (
	DelayLate   DelayType = "late"
	DelayEarly  DelayType = "early"
	DelayOnTime DelayType = "on time"
)

// Delay is a classified delay. Minutes carries a leading sign for late and
// early values ("+3", "-2") and is "0" when on time.
type Delay struct {
	Seconds int       `json:"seconds"`
	Type    DelayType `json:"type"`
	Minutes string    `json:"minutes"`
	Text    string    `json:"text"`
}

// DelaySource tells where a trip-level delay came from.
type DelaySource string

const (
	DelaySourceRealtime DelaySource = "realtime"
	DelaySourceSchedule DelaySource = "schedule"
	DelaySourceNone     DelaySource = "none"
)

// StopDisplay is one stop of a trip as shown to clients.
type StopDisplay struct {
	StopID        string `json:"stop_id"`
	StopName      string `json:"stop_name"`
	StopSequence  int    `json:"stop_sequence"`
	ScheduledTime string `json:"scheduled_time"`
	ExpectedTime  string `json:"expected_time"`
	Delay         *Delay `json:"delay,omitempty"`
}

// TripDetail is the answer of a trip or vehicle detail query.
type TripDetail struct {
	TripID      string        `json:"trip_id"`
	RouteID     string        `json:"route_id"`
	VehicleID   string        `json:"vehicle_id"`
	Delay       Delay         `json:"delay"`
	DelaySource DelaySource   `json:"delay_source"`
	Stops       []StopDisplay `json:"stops"`
}
