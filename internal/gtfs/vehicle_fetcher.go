package gtfs

import (
	"context"
	"log/slog"
	"net/http"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"github.com/sourcegraph/conc"
	"vehicletracker.org/internal/models"
)

// VehicleFetcher turns one poll of the upstream vehicle positions feed into a
// list of vehicle snapshots. It keeps no state between calls.
type VehicleFetcher struct {
	client       *http.Client
	positionsURL string
	detailsURL   string
	logger       *slog.Logger
}

// NewVehicleFetcher creates a fetcher for the binary positions feed at
// positionsURL. detailsURL is the optional plain-text side channel; pass ""
// to skip it.
func NewVehicleFetcher(client *http.Client, positionsURL, detailsURL string, logger *slog.Logger) *VehicleFetcher {
	return &VehicleFetcher{
		client:       client,
		positionsURL: positionsURL,
		detailsURL:   detailsURL,
		logger:       logger,
	}
}

// FetchOnce performs one fetch of the positions feed and decodes it.
//
// The side channel is fetched concurrently. Its failures are logged and
// absorbed; vehicles it does not describe get models.NotAvailable attributes.
// Errors wrap ErrNetwork or ErrDecode. FetchOnce never retries.
func (f *VehicleFetcher) FetchOnce(ctx context.Context) ([]models.VehicleSnapshot, error) {
	var (
		wg         conc.WaitGroup
		data       []byte
		fetchErr   error
		details    map[string]models.VehicleDetails
		detailsErr error
	)

	wg.Go(func() {
		data, fetchErr = fetchFeed(ctx, f.client, f.positionsURL)
	})
	if f.detailsURL != "" {
		wg.Go(func() {
			details, detailsErr = f.fetchDetails(ctx)
		})
	}
	wg.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if detailsErr != nil {
		f.logger.Warn("Vehicle details side channel unavailable", "error", detailsErr)
		details = nil
	}

	realtime, err := decodeRealtime(data)
	if err != nil {
		return nil, err
	}

	return buildSnapshots(realtime, details), nil
}

// buildSnapshots keeps vehicles that have both an id and a full position,
// in feed order.
func buildSnapshots(realtime *remoteGtfs.Realtime, details map[string]models.VehicleDetails) []models.VehicleSnapshot {
	snapshots := make([]models.VehicleSnapshot, 0, len(realtime.Vehicles))
	for _, vehicle := range realtime.Vehicles {
		if vehicle.ID == nil || vehicle.ID.ID == "" {
			continue
		}
		pos := vehicle.Position
		if pos == nil || pos.Latitude == nil || pos.Longitude == nil {
			continue
		}

		snapshot := models.VehicleSnapshot{
			VehicleID:    vehicle.ID.ID,
			RouteID:      models.NotAvailable,
			Label:        vehicle.ID.Label,
			LicensePlate: models.NotAvailable,
			VehicleModel: models.NotAvailable,
			Latitude:     float64(*pos.Latitude),
			Longitude:    float64(*pos.Longitude),
		}
		if vehicle.Trip != nil {
			snapshot.TripID = vehicle.Trip.ID.ID
			if vehicle.Trip.ID.RouteID != "" {
				snapshot.RouteID = vehicle.Trip.ID.RouteID
			}
		}
		if d, ok := details[vehicle.ID.ID]; ok {
			snapshot.LicensePlate = d.LicensePlate
			snapshot.VehicleModel = d.VehicleModel
		}

		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}
