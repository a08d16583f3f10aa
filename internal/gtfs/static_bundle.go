package gtfs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/getsentry/sentry-go"
	"vehicletracker.org/internal/config"
	"vehicletracker.org/internal/report"
	"vehicletracker.org/internal/utils"
)

const staticBundlePrefix = "static_"

// StaticBundleFileName is the cache file name used for the bundle at bundleURL.
func StaticBundleFileName(bundleURL string) string {
	sum := sha1.Sum([]byte(bundleURL))
	return staticBundlePrefix + hex.EncodeToString(sum[:]) + ".zip"
}

// DownloadStaticBundle downloads the GTFS zip at bundleURL into cacheDir and
// returns its path. Transient failures are retried with exponential backoff.
//
// When the download still fails, the most recently cached bundle is returned
// instead, if there is one. The error is returned only when no bundle is
// available at all.
func DownloadStaticBundle(ctx context.Context, client *http.Client, bundleURL, cacheDir string, logger *slog.Logger) (string, error) {
	if err := utils.CreateCacheDirectory(cacheDir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}

	target := filepath.Join(cacheDir, StaticBundleFileName(bundleURL))
	err := downloadToFile(ctx, client, bundleURL, target)
	if err == nil {
		logger.Info("Downloaded static GTFS bundle", "path", target)
		return target, nil
	}

	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap("component", "static_bundle"),
		ExtraContext: map[string]interface{}{
			"bundle_url": redactURL(bundleURL),
			"cache_dir":  cacheDir,
		},
		Level: sentry.LevelWarning,
	})

	cached, cacheErr := utils.GetLastCachedFile(cacheDir, staticBundlePrefix)
	if cacheErr != nil {
		return "", fmt.Errorf("%w: no cached bundle after failed download: %w", ErrNetwork, err)
	}
	logger.Warn("Static GTFS bundle download failed, using cached copy", "error", err, "path", cached)
	return cached, nil
}

func downloadToFile(ctx context.Context, client *http.Client, bundleURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request for %s: %w", ErrNetwork, redactURL(bundleURL), err)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, config.StaticBundleMaxRetries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, redactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrNetwork, redactURL(bundleURL), resp.StatusCode)
	}

	// write next to the target and rename so a partial download never replaces a good bundle
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*.part")
	if err != nil {
		return fmt.Errorf("failed to create temporary bundle file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to read bundle from %s: %w", ErrNetwork, redactURL(bundleURL), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write bundle file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move bundle into place: %w", err)
	}
	return nil
}
