//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"vehicletracker.org/internal/app"
	"vehicletracker.org/internal/gtfs"
)

// TestDownloadStaticBundle downloads the configured static bundle and loads it.
func TestDownloadStaticBundle(t *testing.T) {
	cfg := integrationConfig
	if cfg.StaticBundleURL == "" {
		t.Skip("STATIC_BUNDLE_URL not set")
	}

	client := app.NewPooledClient("integration")
	client.Timeout = 2 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	path, err := gtfs.DownloadStaticBundle(ctx, client, cfg.StaticBundleURL, t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("DownloadStaticBundle() error = %v", err)
	}

	static, err := gtfs.LoadStaticBundle(path)
	if err != nil {
		t.Fatalf("LoadStaticBundle(%s) error = %v", path, err)
	}
	if static.Empty() {
		t.Errorf("expected stops in the static bundle")
	}
	t.Logf("loaded %d stops from %s", len(static.Stops()), path)
}
