package gtfs

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrt "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/proto"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func marshalFeed(t *testing.T, entities ...*gtfsrt.FeedEntity) []byte {
	t.Helper()

	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix())),
		},
		Entity: entities,
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal GTFS-RT fixture: %v", err)
	}
	return data
}

// vehicleEntity builds a vehicle position entity. A nil lat or lon leaves the position out.
func vehicleEntity(entityID, vehicleID, label string, lat, lon *float32, tripID, routeID string) *gtfsrt.FeedEntity {
	vp := &gtfsrt.VehiclePosition{}
	if vehicleID != "" || label != "" {
		vp.Vehicle = &gtfsrt.VehicleDescriptor{}
		if vehicleID != "" {
			vp.Vehicle.Id = proto.String(vehicleID)
		}
		if label != "" {
			vp.Vehicle.Label = proto.String(label)
		}
	}
	if lat != nil && lon != nil {
		vp.Position = &gtfsrt.Position{Latitude: lat, Longitude: lon}
	}
	if tripID != "" {
		vp.Trip = &gtfsrt.TripDescriptor{TripId: proto.String(tripID)}
		if routeID != "" {
			vp.Trip.RouteId = proto.String(routeID)
		}
	}
	return &gtfsrt.FeedEntity{Id: proto.String(entityID), Vehicle: vp}
}

func tripUpdateEntity(entityID, tripID, routeID, vehicleID string, updates ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	tu := &gtfsrt.TripUpdate{
		Trip:           &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
		StopTimeUpdate: updates,
	}
	if routeID != "" {
		tu.Trip.RouteId = proto.String(routeID)
	}
	if vehicleID != "" {
		tu.Vehicle = &gtfsrt.VehicleDescriptor{Id: proto.String(vehicleID)}
	}
	return &gtfsrt.FeedEntity{Id: proto.String(entityID), TripUpdate: tu}
}

// stopUpdate builds a stop time update. seq 0 and an empty stopID are left unset;
// delay and at are applied to the arrival when non-nil.
func stopUpdate(seq uint32, stopID string, delay *int32, at *time.Time) *gtfsrt.TripUpdate_StopTimeUpdate {
	u := &gtfsrt.TripUpdate_StopTimeUpdate{}
	if seq != 0 {
		u.StopSequence = proto.Uint32(seq)
	}
	if stopID != "" {
		u.StopId = proto.String(stopID)
	}
	if delay != nil || at != nil {
		u.Arrival = &gtfsrt.TripUpdate_StopTimeEvent{Delay: delay}
		if at != nil {
			u.Arrival.Time = proto.Int64(at.Unix())
		}
	}
	return u
}

func setupFeedServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func setupStatusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func float32Ptr(v float32) *float32 { return &v }

func int32Ptr(v int32) *int32 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
