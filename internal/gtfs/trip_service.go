package gtfs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"vehicletracker.org/internal/models"
)

// scheduleLookback is how far in the past a scheduled stop may lie and still
// be taken as the current one by the schedule-only delay estimate.
const scheduleLookback = 2 * time.Minute

// TripService answers trip and vehicle detail queries with a live fetch of the
// trip updates feed joined against the static table.
type TripService struct {
	client         *http.Client
	tripUpdatesURL string
	static         *StaticTable
	location       *time.Location
	now            func() time.Time
}

// TripServiceOption customises a TripService.
type TripServiceOption func(*TripService)

// WithTripClock overrides the clock used to decide which stops are upcoming.
func WithTripClock(now func() time.Time) TripServiceOption {
	return func(s *TripService) {
		s.now = now
	}
}

// NewTripService creates a TripService. static may be nil; loc is the
// timezone of the service day and defaults to UTC.
func NewTripService(client *http.Client, tripUpdatesURL string, static *StaticTable, loc *time.Location, opts ...TripServiceOption) *TripService {
	if loc == nil {
		loc = time.UTC
	}
	s := &TripService{
		client:         client,
		tripUpdatesURL: tripUpdatesURL,
		static:         static,
		location:       loc,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TripDetail fetches the trip updates feed and describes the trip whose trip
// id, or whose vehicle id, equals id.
//
// Errors wrap ErrNetwork, ErrDecode or ErrNotFound.
func (s *TripService) TripDetail(ctx context.Context, id string) (*models.TripDetail, error) {
	data, err := fetchFeed(ctx, s.client, s.tripUpdatesURL)
	if err != nil {
		return nil, err
	}
	realtime, err := decodeRealtime(data)
	if err != nil {
		return nil, err
	}

	trip := findTrip(realtime.Trips, id)
	if trip == nil {
		return nil, fmt.Errorf("%w: no trip or vehicle %q in the trip updates feed", ErrNotFound, id)
	}
	return s.buildDetail(trip, s.now()), nil
}

func findTrip(trips []remoteGtfs.Trip, id string) *remoteGtfs.Trip {
	if id == "" {
		return nil
	}
	for i := range trips {
		trip := &trips[i]
		if trip.ID.ID == id {
			return trip
		}
		if trip.Vehicle != nil && trip.Vehicle.ID != nil && trip.Vehicle.ID.ID == id {
			return trip
		}
	}
	return nil
}

// tripStop is one row of the stop list while it is being assembled.
type tripStop struct {
	stopID   string
	sequence int

	// offsets from the service day start, from the static table
	scheduledArrival   *time.Duration
	scheduledDeparture *time.Duration

	update *remoteGtfs.StopTimeUpdate

	delay    *time.Duration
	expected *time.Time
}

func (s *TripService) buildDetail(trip *remoteGtfs.Trip, now time.Time) *models.TripDetail {
	detail := &models.TripDetail{
		TripID:    trip.ID.ID,
		RouteID:   models.NotAvailable,
		VehicleID: models.NotAvailable,
	}
	if trip.ID.RouteID != "" {
		detail.RouteID = trip.ID.RouteID
	}
	if trip.Vehicle != nil && trip.Vehicle.ID != nil && trip.Vehicle.ID.ID != "" {
		detail.VehicleID = trip.Vehicle.ID.ID
	}

	staticTimes := s.static.StopTimes(trip.ID.ID)
	var stops []*tripStop
	if len(staticTimes) > 0 {
		stops = overlayUpdates(staticRows(staticTimes), trip.StopTimeUpdates)
	} else {
		stops = realtimeRows(trip.StopTimeUpdates)
	}

	serviceDay := s.serviceDay(stops, now)
	computeStopDelays(stops, serviceDay)

	delay, source := tripDelay(stops, serviceDay, now)
	detail.Delay = ClassifyDelay(int(delay / time.Second))
	detail.DelaySource = source

	detail.Stops = make([]models.StopDisplay, 0, len(stops))
	for _, stop := range stops {
		detail.Stops = append(detail.Stops, s.display(stop))
	}
	return detail
}

func staticRows(times []models.StopTime) []*tripStop {
	rows := make([]*tripStop, 0, len(times))
	for _, st := range times {
		row := &tripStop{stopID: st.StopID, sequence: st.StopSequence}
		if d, err := ParseScheduleTime(st.ArrivalTime); err == nil {
			row.scheduledArrival = &d
		}
		if d, err := ParseScheduleTime(st.DepartureTime); err == nil {
			row.scheduledDeparture = &d
		}
		if row.scheduledArrival == nil {
			row.scheduledArrival = row.scheduledDeparture
		}
		rows = append(rows, row)
	}
	return rows
}

func realtimeRows(updates []remoteGtfs.StopTimeUpdate) []*tripStop {
	rows := make([]*tripStop, 0, len(updates))
	for i := range updates {
		update := &updates[i]
		row := &tripStop{update: update}
		if update.StopID != nil {
			row.stopID = *update.StopID
		}
		if update.StopSequence != nil {
			row.sequence = int(*update.StopSequence)
		}
		rows = append(rows, row)
	}
	return rows
}

// overlayUpdates attaches each realtime update to its static row, by stop
// sequence first and then by the first unmatched row with the same stop id.
// Updates matching no row are dropped.
func overlayUpdates(rows []*tripStop, updates []remoteGtfs.StopTimeUpdate) []*tripStop {
	bySequence := make(map[int]*tripStop, len(rows))
	for _, row := range rows {
		bySequence[row.sequence] = row
	}

	for i := range updates {
		update := &updates[i]
		if update.StopSequence != nil {
			if row, ok := bySequence[int(*update.StopSequence)]; ok && row.update == nil {
				row.update = update
				continue
			}
		}
		if update.StopID == nil {
			continue
		}
		for _, row := range rows {
			if row.update == nil && row.stopID == *update.StopID {
				row.update = update
				break
			}
		}
	}
	return rows
}

// serviceDay picks the service day the trip runs on. The first stop with both
// a realtime time and a schedule anchors it; otherwise the first scheduled
// stop is placed closest to now.
func (s *TripService) serviceDay(stops []*tripStop, now time.Time) time.Time {
	for _, stop := range stops {
		event := primaryEvent(stop.update)
		if event == nil || event.Time == nil || stop.scheduledArrival == nil {
			continue
		}
		return closestServiceDay(*stop.scheduledArrival, *event.Time, s.location)
	}
	for _, stop := range stops {
		if stop.scheduledArrival != nil {
			return closestServiceDay(*stop.scheduledArrival, now, s.location)
		}
	}
	return serviceDayStart(now.In(s.location))
}

// primaryEvent is the arrival of an update, or its departure when there is no arrival.
func primaryEvent(update *remoteGtfs.StopTimeUpdate) *remoteGtfs.StopTimeEvent {
	if update == nil {
		return nil
	}
	if update.Arrival != nil {
		return update.Arrival
	}
	return update.Departure
}

// computeStopDelays fills delay and expected time of every stop. A stop's own
// delay field wins, then its realtime time against the schedule; stops with
// neither inherit the delay of the closest previous stop.
func computeStopDelays(stops []*tripStop, serviceDay time.Time) {
	var propagated *time.Duration
	for _, stop := range stops {
		stop.delay, stop.expected = ownDelay(stop, serviceDay)
		if stop.delay == nil && propagated != nil {
			d := *propagated
			stop.delay = &d
		}
		if stop.delay != nil {
			propagated = stop.delay
			if stop.expected == nil && stop.scheduledArrival != nil {
				e := serviceDay.Add(*stop.scheduledArrival).Add(*stop.delay)
				stop.expected = &e
			}
		}
	}
}

func ownDelay(stop *tripStop, serviceDay time.Time) (*time.Duration, *time.Time) {
	if stop.update == nil {
		return nil, nil
	}
	arrival, departure := stop.update.Arrival, stop.update.Departure

	var expected *time.Time
	if event := primaryEvent(stop.update); event != nil && event.Time != nil {
		t := *event.Time
		expected = &t
	}

	for _, event := range []*remoteGtfs.StopTimeEvent{arrival, departure} {
		if event != nil && event.Delay != nil {
			d := *event.Delay
			return &d, expected
		}
	}

	candidates := []struct {
		event     *remoteGtfs.StopTimeEvent
		scheduled *time.Duration
	}{
		{arrival, stop.scheduledArrival},
		{departure, stop.scheduledDeparture},
	}
	for _, c := range candidates {
		if c.event == nil || c.event.Time == nil || c.scheduled == nil {
			continue
		}
		d := c.event.Time.Sub(serviceDay.Add(*c.scheduled))
		return &d, expected
	}
	return nil, expected
}

// tripDelay picks the delay shown for the whole trip: the first upcoming stop
// with a known delay, else the last stop with one, else the schedule-only
// estimate, else zero.
func tripDelay(stops []*tripStop, serviceDay, now time.Time) (time.Duration, models.DelaySource) {
	var last *time.Duration
	for _, stop := range stops {
		if stop.delay == nil {
			continue
		}
		last = stop.delay
		if stop.expected != nil && !stop.expected.Before(now) {
			return *stop.delay, models.DelaySourceRealtime
		}
	}
	if last != nil {
		return *last, models.DelaySourceRealtime
	}

	for _, stop := range stops {
		if stop.scheduledArrival == nil {
			continue
		}
		scheduled := serviceDay.Add(*stop.scheduledArrival)
		if diff := now.Sub(scheduled); diff <= scheduleLookback {
			return diff.Truncate(time.Second), models.DelaySourceSchedule
		}
	}
	return 0, models.DelaySourceNone
}

func (s *TripService) display(stop *tripStop) models.StopDisplay {
	out := models.StopDisplay{
		StopID:       stop.stopID,
		StopName:     stop.stopID,
		StopSequence: stop.sequence,
	}
	if name, ok := s.static.StopName(stop.stopID); ok {
		out.StopName = name
	}
	if stop.scheduledArrival != nil {
		out.ScheduledTime = FormatScheduleTime(*stop.scheduledArrival)
	}
	if stop.expected != nil {
		out.ExpectedTime = stop.expected.In(s.location).Format("15:04")
	}
	if stop.delay != nil {
		d := ClassifyDelay(int(*stop.delay / time.Second))
		out.Delay = &d
	}
	return out
}
