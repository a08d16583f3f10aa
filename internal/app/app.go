package app

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"vehicletracker.org/internal/cache"
	"vehicletracker.org/internal/config"
	"vehicletracker.org/internal/geo"
	"vehicletracker.org/internal/gtfs"
	"vehicletracker.org/internal/models"
	"vehicletracker.org/internal/stream"
)

// VehicleReader is the read side of the refresh cache.
type VehicleReader interface {
	Read() models.CacheState
}

// TripDetailer answers trip and vehicle detail queries.
type TripDetailer interface {
	TripDetail(ctx context.Context, id string) (*models.TripDetail, error)
}

// Application holds the dependencies of the HTTP handlers.
// Vehicles, Trips and Stream are interfaces so handlers can be tested
// without a live feed.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Vehicles VehicleReader
	Trips    TripDetailer
	Stream   http.Handler
	Static   *gtfs.StaticTable
	Version  string

	refresher *cache.RefreshCache
	hub       *stream.Hub
	templates *template.Template
}

// New wires the vehicle fetcher, refresh cache, trip service and live stream
// on top of client and the static table. static may be empty.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, static *gtfs.StaticTable, version string) (*Application, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("service day timezone: %w", err)
	}

	var cacheOpts []cache.Option
	if !static.Empty() {
		area, err := geo.ComputeBoundingBox(static.Stops(), geo.DefaultServiceAreaMargin)
		if err != nil {
			logger.Warn("Service area check disabled", "error", err)
		} else {
			cacheOpts = append(cacheOpts, cache.WithServiceArea(&area))
		}
	}

	fetcher := gtfs.NewVehicleFetcher(client, cfg.VehiclePositionsURL(), cfg.VehiclePositionsTextURL(), logger)
	refresher := cache.New(fetcher, logger, cacheOpts...)
	hub := stream.NewHub(refresher.Read, logger)
	refresher.OnUpdate(hub.Broadcast)

	trips := gtfs.NewTripService(client, cfg.TripUpdatesURL(), static, loc)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Vehicles:  refresher,
		Trips:     trips,
		Stream:    hub,
		Static:    static,
		Version:   version,
		refresher: refresher,
		hub:       hub,
		templates: templates,
	}, nil
}

// StartRefresh performs the first refresh and keeps the vehicle cache
// refreshing until ctx is cancelled.
func (app *Application) StartRefresh(ctx context.Context) error {
	return app.refresher.Start(ctx, config.RefreshInterval)
}

// Close disconnects all live stream clients.
func (app *Application) Close() {
	if app.hub != nil {
		app.hub.Close()
	}
}
