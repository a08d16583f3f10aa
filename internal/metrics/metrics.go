package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes used as the "outcome" label of RefreshTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_cache_refresh_total",
		Help: "Number of vehicle cache refresh attempts by outcome",
	}, []string{"outcome"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vehicle_cache_refresh_duration_seconds",
		Help:    "Duration of vehicle cache refresh attempts",
		Buckets: prometheus.DefBuckets,
	})

	LastSuccessfulRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_last_success_timestamp_seconds",
		Help: "Unix time of the last successful vehicle cache refresh",
	})

	// FeedOK mirrors the ok flag of the cache (1 = last attempt succeeded).
	FeedOK = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_feed_ok",
		Help: "Outcome of the most recent refresh attempt (0 = failed, 1 = succeeded)",
	})
)

var (
	CachedVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_vehicles",
		Help: "Number of vehicles in the cached snapshot",
	})

	VehiclesInvalidPosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_vehicles_invalid_position",
		Help: "Vehicles in the cached snapshot whose coordinates are out of range or (0,0)",
	})

	VehiclesOutOfServiceArea = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_vehicles_out_of_service_area",
		Help: "Vehicles in the cached snapshot outside the bounding box of the static stops",
	})

	VehiclesWithoutDetails = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vehicle_cache_vehicles_without_details",
		Help: "Vehicles in the cached snapshot with no licence plate from the side channel",
	})
)

var (
	StaticStops = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "static_gtfs_stops",
		Help: "Number of stops loaded from the static GTFS data",
	})

	TripDetailRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_detail_requests_total",
		Help: "Trip detail queries by result",
	}, []string{"result"})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_clients",
		Help: "Number of connected websocket clients",
	})

	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outgoing_request_duration_seconds",
		Help:    "Latency of requests to upstream feeds",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
