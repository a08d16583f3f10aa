package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"vehicletracker.org/internal/app"
	"vehicletracker.org/internal/config"
	"vehicletracker.org/internal/gtfs"
	"vehicletracker.org/internal/metrics"
	"vehicletracker.org/internal/report"
	"vehicletracker.org/internal/utils"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

const (
	shutdownTimeout = 10 * time.Second
	// a static bundle is much larger than a realtime feed
	bundleDownloadTimeout = 2 * time.Minute
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := report.SetupSentry(cfg.SentryDSN, cfg.Env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()
	report.ConfigureScope(cfg.Env, version, cfg.FeedBaseURL)

	if err := run(cfg, logger); err != nil {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient(version)
	static := loadStatic(ctx, cfg, client, logger)

	application, err := app.New(cfg, logger, client, static, version)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.StartRefresh(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", version)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	application.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadStatic loads the static table from the configured bundle URL or
// directory. Missing static data is logged and reported; the returned table
// is then empty or partial and the service keeps running.
func loadStatic(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) *gtfs.StaticTable {
	var (
		static *gtfs.StaticTable
		err    error
		source = cfg.StaticDir
	)

	if cfg.StaticBundleURL != "" {
		bundleClient := *client
		bundleClient.Timeout = bundleDownloadTimeout

		var bundlePath string
		bundlePath, err = gtfs.DownloadStaticBundle(ctx, &bundleClient, cfg.StaticBundleURL, cfg.CacheDir, logger)
		if err == nil {
			source = bundlePath
			static, err = gtfs.LoadStaticBundle(bundlePath)
		}
	} else {
		static, err = gtfs.LoadStaticDir(cfg.StaticDir)
	}

	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("component", "static"),
			Level: sentry.LevelWarning,
		})
		logger.Warn("Static GTFS data unavailable, stop names and schedules degrade", "source", source, "error", err)
	}

	stops := len(static.Stops())
	metrics.StaticStops.Set(float64(stops))
	logger.Info("Loaded static GTFS data", "source", source, "stops", stops)
	return static
}
