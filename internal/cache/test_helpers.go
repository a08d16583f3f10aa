package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"vehicletracker.org/internal/models"
)

var errUpstream = errors.New("upstream unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedFetcher returns the scripted outcomes in order. Cycle n (1-based)
// succeeds with n vehicles tagged "cycle-n" unless it is listed in failures.
// Calls past the script keep succeeding.
type scriptedFetcher struct {
	mu       sync.Mutex
	calls    int
	failures map[int]bool
}

func newScriptedFetcher(failingCycles ...int) *scriptedFetcher {
	f := &scriptedFetcher{failures: make(map[int]bool)}
	for _, c := range failingCycles {
		f.failures[c] = true
	}
	return f
}

func (f *scriptedFetcher) FetchOnce(ctx context.Context) ([]models.VehicleSnapshot, error) {
	f.mu.Lock()
	f.calls++
	cycle := f.calls
	fail := f.failures[cycle]
	f.mu.Unlock()

	if fail {
		return nil, errUpstream
	}
	return snapshotForCycle(cycle), nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func snapshotForCycle(cycle int) []models.VehicleSnapshot {
	vehicles := make([]models.VehicleSnapshot, cycle%5+1)
	for i := range vehicles {
		vehicles[i] = models.VehicleSnapshot{
			VehicleID:    cycleTag(cycle),
			RouteID:      models.NotAvailable,
			LicensePlate: models.NotAvailable,
			VehicleModel: models.NotAvailable,
			Latitude:     47.49,
			Longitude:    19.04,
		}
	}
	return vehicles
}

func cycleTag(cycle int) string {
	return fmt.Sprintf("cycle-%d", cycle)
}

// cycleClock returns Unix time equal to the number of fetches made so far,
// so FetchedAt identifies the cycle that produced the snapshot.
func cycleClock(f *scriptedFetcher) func() time.Time {
	return func() time.Time {
		return time.Unix(int64(f.Calls()), 0)
	}
}
