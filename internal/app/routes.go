package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"vehicletracker.org/internal/middleware"
)

// metricsCacheTTL is how long a /metrics exposition is served before it is rebuilt.
const metricsCacheTTL = 10 * time.Second

// Routes registers every endpoint and wraps the router with panic recovery,
// Sentry and the security headers. ctx bounds the /metrics cache refresher.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	// JSON API
	router.HandlerFunc(http.MethodGet, "/api/vehicles", app.vehiclesHandler)
	router.HandlerFunc(http.MethodGet, "/api/trips/:id", app.tripHandler)
	router.HandlerFunc(http.MethodGet, "/trip/:id", app.tripHandler)
	router.Handler(http.MethodGet, "/ws/vehicles", app.Stream)

	// HTML views
	router.HandlerFunc(http.MethodGet, "/", app.indexPage)
	router.HandlerFunc(http.MethodGet, "/map", app.mapPage)
	router.HandlerFunc(http.MethodGet, "/vehicles", app.vehiclesPage)
	router.HandlerFunc(http.MethodGet, "/vehicle/:id", app.vehiclePage)
	router.Handler(http.MethodGet, "/static/*filepath", staticHandler())
	router.HandlerFunc(http.MethodGet, "/icons/*filepath", app.iconHandler)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, metricsCacheTTL))

	handler := middleware.RecoverPanic(app.Logger)(middleware.SentryMiddleware(router))
	return middleware.SecurityHeaders(handler)
}
