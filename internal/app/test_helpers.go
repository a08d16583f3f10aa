package app

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"

	"vehicletracker.org/internal/config"
	"vehicletracker.org/internal/models"
	"vehicletracker.org/internal/stream"
)

type stubVehicles struct {
	state models.CacheState
}

func (s *stubVehicles) Read() models.CacheState {
	state := s.state
	state.Vehicles = slices.Clone(s.state.Vehicles)
	return state
}

type stubTrips struct {
	detail *models.TripDetail
	err    error
	gotID  string
}

func (s *stubTrips) TripDetail(ctx context.Context, id string) (*models.TripDetail, error) {
	s.gotID = id
	return s.detail, s.err
}

// newTestApplication builds an Application around stubs. The stream hub
// serves the stubbed cache state.
func newTestApplication(t *testing.T, vehicles *stubVehicles, trips *stubTrips) *Application {
	t.Helper()

	templates, err := parseTemplates()
	if err != nil {
		t.Fatalf("parseTemplates() error = %v", err)
	}

	cfg := config.Default()
	cfg.Env = "testing"
	cfg.APIKey = "test-key"
	cfg.IconDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := stream.NewHub(vehicles.Read, logger)
	t.Cleanup(hub.Close)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Vehicles:  vehicles,
		Trips:     trips,
		Stream:    hub,
		Version:   "test-version",
		hub:       hub,
		templates: templates,
	}
}
